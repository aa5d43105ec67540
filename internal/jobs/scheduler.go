package jobs

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

const (
	weeklyAlertsEvery = 7 * 24 * time.Hour
	schedulerTick     = time.Hour
	fanOutPriority    = 50
	fanOutMaxAttempts = 3
)

// Scheduler enqueues the recurring fan-out jobs: a weekly alert sweep and a
// monthly report run for the month that just closed. It only looks at the
// jobs table to decide whether a period is already covered, so restarting the
// process never double-schedules.
type Scheduler struct {
	repo   *Repository
	logger *slog.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
}

func NewScheduler(repo *Repository, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{repo: repo, logger: logger, stop: make(chan struct{})}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTicker(schedulerTick)
	defer t.Stop()

	s.tick(ctx)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.maybeEnqueueWeeklyAlerts(ctx); err != nil {
		s.logger.Error("schedule weekly alerts", slog.Any("err", err))
	}
	if err := s.maybeEnqueueMonthlyReports(ctx); err != nil {
		s.logger.Error("schedule monthly reports", slog.Any("err", err))
	}
}

func (s *Scheduler) maybeEnqueueWeeklyAlerts(ctx context.Context) error {
	last, err := s.repo.lastEnqueued(ctx, TypeWeeklyAlerts)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(-weeklyAlertsEvery).UnixMilli()
	if last > cutoff {
		return nil
	}
	b, err := marshalPayload(WeeklyAlertsPayload{})
	if err != nil {
		return err
	}
	_, err = s.repo.Enqueue(ctx, &Job{Type: TypeWeeklyAlerts, Payload: b, Priority: fanOutPriority, MaxAttempts: fanOutMaxAttempts})
	if err == nil {
		s.logger.Info("enqueued weekly alert sweep")
	}
	return err
}

func (s *Scheduler) maybeEnqueueMonthlyReports(ctx context.Context) error {
	month := previousMonth()
	// one fan-out per closed month; the per-site generation is idempotent on
	// top of this
	covered, err := s.repo.hasReportFanOut(ctx, month.String())
	if err != nil {
		return err
	}
	if covered {
		return nil
	}
	b, err := marshalPayload(MonthlyReportPayload{Month: month.String()})
	if err != nil {
		return err
	}
	_, err = s.repo.Enqueue(ctx, &Job{Type: TypeMonthlyReport, Payload: b, Priority: fanOutPriority, MaxAttempts: fanOutMaxAttempts})
	if err == nil {
		s.logger.Info("enqueued monthly report fan-out", slog.String("month", month.String()))
	}
	return err
}

// lastEnqueued returns the created timestamp of the newest job of the given
// type, or zero when none exists.
func (r *Repository) lastEnqueued(ctx context.Context, typ string) (int64, error) {
	row := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(created), 0) FROM jobs WHERE type = ?`, typ)
	var v int64
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

// hasReportFanOut reports whether a month-wide report job (no site target)
// already exists for the month key.
func (r *Repository) hasReportFanOut(ctx context.Context, month string) (bool, error) {
	row := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM jobs WHERE type = ? AND payload LIKE ? AND payload NOT LIKE '%site_id%'`,
		TypeMonthlyReport, `%"month":"`+month+`"%`)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
