package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Job statuses as stored in the jobs table.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Background job types.
const (
	TypeWeeklyAlerts  = "alerts.weekly"
	TypeMonthlyReport = "report.monthly"
)

// Job is one row of background work. A zero DeveloperID on a fan-out type
// means "all developers"; the handler expands it into per-developer jobs.
type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt int64           `json:"scheduled_at"`
	NextTryAt   *int64          `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     int64           `json:"created"`
	Updated     int64           `json:"updated"`
}

// Handler processes one claimed job.
type Handler func(ctx context.Context, j *Job) error

// BackoffDuration returns the retry delay after attempt n, exponential with a
// five minute cap.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
