// Package baseline snapshots scans as the comparison reference for
// regression detection. Baselines are only created on explicit request,
// never automatically.
package baseline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

type Manager struct {
	scans     repository.ScanRepo
	baselines repository.BaselineRepo
	logger    *slog.Logger
}

func NewManager(scans repository.ScanRepo, baselines repository.BaselineRepo, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scans: scans, baselines: baselines, logger: logger}
}

// Create snapshots the scan as the site's current baseline. The repository
// clears the previous current flag and inserts the new row in one
// transaction, so there is never a window with zero or two current
// baselines.
func (m *Manager) Create(ctx context.Context, developerID, siteID, scanID int64, label string) (*models.Baseline, error) {
	scan, err := m.scans.GetScan(ctx, developerID, scanID)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}
	if scan.SiteID != siteID {
		return nil, repository.ErrNotFound
	}
	if scan.Status != models.ScanStatusCompleted {
		return nil, fmt.Errorf("scan %d is not completed", scanID)
	}

	b := &models.Baseline{
		SiteID:         siteID,
		DeveloperID:    developerID,
		ScanID:         scanID,
		Score:          scan.Score,
		CategoryScores: scan.CategoryScores,
		Signals:        scan.Signals,
		Label:          label,
		IsCurrent:      true,
	}
	id, err := m.baselines.CreateBaseline(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create baseline: %w", err)
	}
	b.ID = id

	m.logger.Info("baseline created",
		slog.Int64("site_id", siteID), slog.Int64("scan_id", scanID), slog.Int64("baseline_id", id))
	return b, nil
}

// Current returns the site's current baseline, or nil when none exists.
func (m *Manager) Current(ctx context.Context, developerID, siteID int64) (*models.Baseline, error) {
	b, err := m.baselines.CurrentBaseline(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	if b.DeveloperID != developerID {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

// List returns all baselines for a site, newest first.
func (m *Manager) List(ctx context.Context, developerID, siteID int64) ([]models.Baseline, error) {
	return m.baselines.ListBaselines(ctx, developerID, siteID)
}
