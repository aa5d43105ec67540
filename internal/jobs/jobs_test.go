package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/agentfolio/axscore/db"
	"github.com/agentfolio/axscore/internal/db"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := db.New(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("db.Migrate: %v", err)
	}
	return NewRepository(d)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within 5s")
}

func jobStatus(t *testing.T, repo *Repository, id int64) string {
	t.Helper()
	var status string
	row := repo.db.QueryRow(context.Background(), `SELECT status FROM jobs WHERE id = ?`, id)
	if err := row.Scan(&status); err != nil {
		return ""
	}
	return status
}

func deadLetterCount(t *testing.T, repo *Repository, jobID int64) int {
	t.Helper()
	var n int
	row := repo.db.QueryRow(context.Background(), `SELECT COUNT(*) FROM dead_letter_jobs WHERE job_id = ?`, jobID)
	if err := row.Scan(&n); err != nil {
		t.Fatalf("count dead letters: %v", err)
	}
	return n
}

func TestEnqueueAndProcess(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var calls atomic.Int32
	var gotPayload atomic.Value
	handlers := map[string]Handler{
		"test.echo": func(ctx context.Context, j *Job) error {
			calls.Add(1)
			gotPayload.Store(string(j.Payload))
			return nil
		},
	}

	pool := NewWorkerPool(repo, handlers, nil, 2)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test.echo", map[string]string{"k": "v"}, 100, 3)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool { return jobStatus(t, repo, id) == StatusDone })
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", calls.Load())
	}
	var payload struct {
		K string `json:"k"`
	}
	if err := json.Unmarshal([]byte(gotPayload.Load().(string)), &payload); err != nil || payload.K != "v" {
		t.Fatalf("payload did not round-trip: %v", gotPayload.Load())
	}
}

func TestFailingJobMovesToDeadLetter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	handlers := map[string]Handler{
		"test.boom": func(ctx context.Context, j *Job) error {
			return fmt.Errorf("boom")
		},
	}
	pool := NewWorkerPool(repo, handlers, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test.boom", nil, 100, 1)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool { return deadLetterCount(t, repo, id) == 1 })
	if status := jobStatus(t, repo, id); status != "" {
		t.Fatalf("dead-lettered job still in jobs table with status %q", status)
	}
}

func TestFailingJobRetriesWithBackoff(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	handlers := map[string]Handler{
		"test.flaky": func(ctx context.Context, j *Job) error {
			return fmt.Errorf("transient")
		},
	}
	pool := NewWorkerPool(repo, handlers, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test.flaky", nil, 100, 5)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool { return jobStatus(t, repo, id) == StatusRetry })

	row := repo.db.QueryRow(ctx, `SELECT attempts, next_try_at, last_error FROM jobs WHERE id = ?`, id)
	var attempts int
	var nextTry int64
	var lastError string
	if err := row.Scan(&attempts, &nextTry, &lastError); err != nil {
		t.Fatalf("read job row: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if nextTry <= time.Now().UTC().UnixMilli() {
		t.Fatalf("next_try_at %d not in the future", nextTry)
	}
	if lastError != "transient" {
		t.Fatalf("last_error %q, want transient", lastError)
	}
}

func TestUnknownJobTypeDeadLetters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	pool := NewWorkerPool(repo, map[string]Handler{}, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test.unknown", nil, 100, 3)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, func() bool { return deadLetterCount(t, repo, id) == 1 })
}

func TestFetchNextOrdersByPriority(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	low, err := repo.Enqueue(ctx, &Job{Type: "a", Priority: 200})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	high, err := repo.Enqueue(ctx, &Job{Type: "b", Priority: 10})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	first, err := repo.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if first == nil || first.ID != high {
		t.Fatalf("fetched %+v, want the high-priority job %d", first, high)
	}
	if first.Status != StatusRunning {
		t.Fatalf("claimed job status %q, want running", first.Status)
	}

	second, err := repo.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if second == nil || second.ID != low {
		t.Fatalf("fetched %+v, want %d", second, low)
	}

	// queue drained
	third, err := repo.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if third != nil {
		t.Fatalf("fetched %+v from an empty queue", third)
	}
}

func TestFetchNextSkipsFutureJobs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Enqueue(ctx, &Job{
		Type:        "later",
		ScheduledAt: time.Now().UTC().Add(time.Hour).UnixMilli(),
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	j, err := repo.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if j != nil {
		t.Fatalf("fetched a job scheduled an hour out: %+v", j)
	}
}

func TestBackoffDuration(t *testing.T) {
	if BackoffDuration(1) != 2*time.Second {
		t.Fatalf("attempt 1 backoff = %v", BackoffDuration(1))
	}
	if BackoffDuration(3) != 8*time.Second {
		t.Fatalf("attempt 3 backoff = %v", BackoffDuration(3))
	}
	if BackoffDuration(20) != 5*time.Minute {
		t.Fatalf("backoff not capped: %v", BackoffDuration(20))
	}
}
