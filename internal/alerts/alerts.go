// Package alerts runs the weekly batch job that turns regression and
// volatility detections into persisted alert records. The batch is
// best-effort per site: one site's failure never blocks the rest.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentfolio/axscore/internal/detect"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

const recentWindow = 7 * 24 * time.Hour

type Generator struct {
	sites     repository.SiteRepo
	scans     repository.ScanRepo
	baselines repository.BaselineRepo
	alerts    repository.AlertRepo
	logger    *slog.Logger
}

func NewGenerator(sites repository.SiteRepo, scans repository.ScanRepo, baselines repository.BaselineRepo, alerts repository.AlertRepo, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{sites: sites, scans: scans, baselines: baselines, alerts: alerts, logger: logger}
}

// GenerateWeeklyAlerts walks every active site for the developer and
// persists regression, improvement and volatility alerts from the trailing
// seven days of scans. Returns how many alerts were created.
func (g *Generator) GenerateWeeklyAlerts(ctx context.Context, developerID int64) (int, error) {
	sites, err := g.sites.ListActiveSites(ctx, developerID)
	if err != nil {
		return 0, fmt.Errorf("list sites: %w", err)
	}

	created := 0
	for _, site := range sites {
		n, err := g.processSite(ctx, &site)
		if err != nil {
			// best-effort batch: log and move on to the next site
			g.logger.Error("weekly alerts: site failed",
				slog.Int64("site_id", site.ID), slog.Any("err", err))
			continue
		}
		created += n
	}
	return created, nil
}

func (g *Generator) processSite(ctx context.Context, site *models.Site) (int, error) {
	now := time.Now().UTC()
	from := now.Add(-recentWindow).UnixMilli()
	to := now.UnixMilli() + 1

	scans, err := g.scans.ListCompletedScans(ctx, site.ID, from, to, detect.VolatilityWindowSize)
	if err != nil {
		return 0, fmt.Errorf("list recent scans: %w", err)
	}
	if len(scans) == 0 {
		// nothing scanned this week; not an error
		return 0, nil
	}
	latest := &scans[0]

	created := 0
	bl, err := g.baselines.CurrentBaseline(ctx, site.ID)
	if err != nil {
		return created, fmt.Errorf("load baseline: %w", err)
	}
	if bl != nil {
		report := detect.DetectRegression(bl, latest, detect.DefaultRegressionThreshold)
		for _, reg := range report.Regressions {
			if err := g.createRegressionAlert(ctx, site, latest, bl, reg); err != nil {
				return created, err
			}
			created++
		}
		if report.Improved() {
			if err := g.createImprovementAlert(ctx, site, latest, bl, report.OverallDelta); err != nil {
				return created, err
			}
			created++
		}
	}

	if len(scans) >= 2 {
		vol := detect.DetectVolatility(scans)
		if vol.IsVolatile {
			if err := g.createVolatilityAlert(ctx, site, latest, vol); err != nil {
				return created, err
			}
			created++
		}
	}

	return created, nil
}

func (g *Generator) createRegressionAlert(ctx context.Context, site *models.Site, scan *models.Scan, bl *models.Baseline, reg detect.Regression) error {
	delta := reg.Delta
	prev := reg.BaselineScore
	cur := reg.CurrentScore
	a := &models.Alert{
		SiteID:        site.ID,
		DeveloperID:   site.DeveloperID,
		ScanID:        scan.ID,
		BaselineID:    &bl.ID,
		AlertType:     models.AlertTypeRegression,
		Severity:      reg.Severity(),
		Title:         fmt.Sprintf("%s score dropped %d points", reg.Category, -delta),
		Description:   fmt.Sprintf("The %s category fell from %d to %d against the current baseline.", reg.Category, prev, cur),
		Category:      reg.Category,
		ScoreDelta:    &delta,
		PreviousScore: &prev,
		CurrentScore:  &cur,
		Status:        models.AlertStatusActive,
	}
	_, err := g.alerts.CreateAlert(ctx, a)
	return err
}

func (g *Generator) createImprovementAlert(ctx context.Context, site *models.Site, scan *models.Scan, bl *models.Baseline, overallDelta int) error {
	prev := bl.Score
	cur := scan.Score
	a := &models.Alert{
		SiteID:        site.ID,
		DeveloperID:   site.DeveloperID,
		ScanID:        scan.ID,
		BaselineID:    &bl.ID,
		AlertType:     models.AlertTypeImprovement,
		Severity:      models.SeverityInfo,
		Title:         fmt.Sprintf("Overall score improved by %d points", overallDelta),
		Description:   fmt.Sprintf("The overall score rose from %d to %d against the current baseline.", prev, cur),
		ScoreDelta:    &overallDelta,
		PreviousScore: &prev,
		CurrentScore:  &cur,
		Status:        models.AlertStatusActive,
	}
	_, err := g.alerts.CreateAlert(ctx, a)
	return err
}

func (g *Generator) createVolatilityAlert(ctx context.Context, site *models.Site, scan *models.Scan, vol detect.VolatilityReport) error {
	cur := scan.Score
	a := &models.Alert{
		SiteID:       site.ID,
		DeveloperID:  site.DeveloperID,
		ScanID:       scan.ID,
		AlertType:    models.AlertTypeVolatility,
		Severity:     models.SeverityWarning,
		Title:        "Score is volatile",
		Description:  fmt.Sprintf("Scores over the last %d scans vary with a standard deviation of %.1f (mean %.1f).", vol.SampleSize, vol.Stddev, vol.Mean),
		CurrentScore: &cur,
		Status:       models.AlertStatusActive,
	}
	_, err := g.alerts.CreateAlert(ctx, a)
	return err
}

// UpdateStatus transitions an alert's status for its owning developer.
// Acknowledging stamps the acknowledgement time.
func (g *Generator) UpdateStatus(ctx context.Context, developerID, alertID int64, status string) error {
	switch status {
	case models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusResolved, models.AlertStatusDismissed:
	default:
		return fmt.Errorf("invalid alert status %q", status)
	}

	var ackAt *int64
	if status == models.AlertStatusAcknowledged {
		now := time.Now().UTC().UnixMilli()
		ackAt = &now
	}
	return g.alerts.UpdateAlertStatus(ctx, developerID, alertID, status, ackAt)
}

// List returns the developer's alerts, optionally filtered by status.
func (g *Generator) List(ctx context.Context, developerID int64, status string, limit int) ([]models.Alert, error) {
	return g.alerts.ListAlerts(ctx, developerID, status, limit)
}
