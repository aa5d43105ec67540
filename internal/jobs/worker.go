package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const pollInterval = 500 * time.Millisecond

type WorkerPool struct {
	repo        *Repository
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	stop        chan struct{}
	wg          sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{repo: repo, handlers: handlers, logger: logger, workerCount: workerCount, stop: make(chan struct{})}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", slog.Int("worker", id))
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", slog.Int("worker", id))
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			p.logger.Error("fetch job", slog.Any("err", err))
			p.sleep(time.Second)
			continue
		}
		if job == nil {
			p.sleep(pollInterval)
			continue
		}
		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *Job) {
	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler for job type"
		if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
			p.logger.Error("move to dead letter", slog.Int64("job_id", job.ID), slog.Any("err", err))
		}
		return
	}

	err := h(ctx, job)
	if err == nil {
		job.Status = StatusDone
		job.NextTryAt = nil
		job.LastError = ""
		if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
			p.logger.Error("mark job done", slog.Int64("job_id", job.ID), slog.Any("err", upErr))
		}
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	p.logger.Warn("job attempt failed",
		slog.Int64("job_id", job.ID),
		slog.String("type", job.Type),
		slog.Int("attempt", job.Attempts),
		slog.Any("err", err))

	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		if mvErr := p.repo.MoveToDeadLetter(ctx, job); mvErr != nil {
			p.logger.Error("move to dead letter", slog.Int64("job_id", job.ID), slog.Any("err", mvErr))
		}
		return
	}

	next := time.Now().UTC().Add(BackoffDuration(job.Attempts)).UnixMilli()
	job.NextTryAt = &next
	job.Status = StatusRetry
	if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
		p.logger.Error("update job for retry", slog.Int64("job_id", job.ID), slog.Any("err", upErr))
	}
}

// sleep waits for d but wakes early on stop.
func (p *WorkerPool) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
	case <-t.C:
	}
}

// Enqueue marshals payload and persists a new queued job.
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	j := &Job{Type: typ, Priority: priority, MaxAttempts: maxAttempts}
	if payload != nil {
		b, err := marshalPayload(payload)
		if err != nil {
			return 0, err
		}
		j.Payload = b
	}
	return p.repo.Enqueue(ctx, j)
}
