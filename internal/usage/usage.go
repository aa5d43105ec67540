// Package usage gates scans, simulations and report generations against
// plan-based monthly quotas. Counter increments go through a database-level
// atomic UPDATE so concurrent requests never lose updates; the only
// in-process state is a TTL cache of plan lookups, used purely to save a
// read.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

// Counter names accepted by the tracker.
const (
	CounterScans       = "scans"
	CounterSimulations = "simulations"
	CounterGenerations = "generations"
)

// Unlimited is the sentinel limit meaning no quota applies.
const Unlimited = -1

// Limits holds one plan's monthly allowances.
type Limits struct {
	Scans       int
	Simulations int
	Generations int
}

func (l Limits) counterLimit(counter string) (int, error) {
	switch counter {
	case CounterScans:
		return l.Scans, nil
	case CounterSimulations:
		return l.Simulations, nil
	case CounterGenerations:
		return l.Generations, nil
	default:
		return 0, fmt.Errorf("unknown usage counter %q", counter)
	}
}

var planLimits = map[string]Limits{
	"free":       {Scans: 10, Simulations: 5, Generations: 2},
	"pro":        {Scans: 100, Simulations: 50, Generations: 10},
	"enterprise": {Scans: Unlimited, Simulations: Unlimited, Generations: Unlimited},
}

// PlanLimits returns the limits for a plan name, defaulting unknown plans to
// free.
func PlanLimits(plan string) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits["free"]
}

// CheckResult is the structured quota answer handed to the caller; quota
// exhaustion is a condition, not an error.
type CheckResult struct {
	Allowed bool `json:"allowed"`
	Used    int  `json:"used"`
	Limit   int  `json:"limit"`
}

type Tracker struct {
	usage      repository.UsageRepo
	developers repository.DeveloperRepo
	planCache  *gocache.Cache
	logger     *slog.Logger
}

func NewTracker(usage repository.UsageRepo, developers repository.DeveloperRepo, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		usage:      usage,
		developers: developers,
		planCache:  gocache.New(5*time.Minute, 10*time.Minute),
		logger:     logger,
	}
}

// CheckUsageLimit compares the developer's current-month counter against the
// plan limit. Unlimited plans short-circuit with no storage read.
func (t *Tracker) CheckUsageLimit(ctx context.Context, developerID int64, counter string, month models.Month) (CheckResult, error) {
	plan, err := t.planFor(ctx, developerID)
	if err != nil {
		return CheckResult{}, err
	}

	limit, err := PlanLimits(plan).counterLimit(counter)
	if err != nil {
		return CheckResult{}, err
	}
	if limit == Unlimited {
		return CheckResult{Allowed: true, Limit: Unlimited}, nil
	}

	rec, err := t.usage.GetUsage(ctx, developerID, month.String())
	if err != nil {
		return CheckResult{}, fmt.Errorf("read usage: %w", err)
	}

	used := 0
	if rec != nil {
		switch counter {
		case CounterScans:
			used = rec.ScansUsed
		case CounterSimulations:
			used = rec.SimulationsUsed
		case CounterGenerations:
			used = rec.GenerationsUsed
		}
	}

	return CheckResult{Allowed: used < limit, Used: used, Limit: limit}, nil
}

// IncrementUsage atomically bumps the counter for the developer's current
// month. Callers increment only after the gated operation succeeded.
func (t *Tracker) IncrementUsage(ctx context.Context, developerID int64, counter string, month models.Month) error {
	switch counter {
	case CounterScans, CounterSimulations, CounterGenerations:
	default:
		return fmt.Errorf("unknown usage counter %q", counter)
	}
	return t.usage.IncrementUsage(ctx, developerID, month.String(), counter)
}

// Usage returns the raw record for the month, zeroed when nothing was used.
func (t *Tracker) Usage(ctx context.Context, developerID int64, month models.Month) (*models.UsageRecord, error) {
	rec, err := t.usage.GetUsage(ctx, developerID, month.String())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &models.UsageRecord{DeveloperID: developerID, Month: month.String()}
	}
	return rec, nil
}

func (t *Tracker) planFor(ctx context.Context, developerID int64) (string, error) {
	key := strconv.FormatInt(developerID, 10)
	if v, ok := t.planCache.Get(key); ok {
		return v.(string), nil
	}

	dev, err := t.developers.GetDeveloperByID(ctx, developerID)
	if err != nil {
		return "", fmt.Errorf("load developer: %w", err)
	}
	if dev == nil {
		return "", repository.ErrNotFound
	}

	t.planCache.Set(key, dev.Plan, gocache.DefaultExpiration)
	return dev.Plan, nil
}
