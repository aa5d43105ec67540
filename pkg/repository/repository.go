package repository

import (
	"context"
	"errors"

	"github.com/agentfolio/axscore/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Every lookup and mutation is scoped by developer ID so one tenant can never
// observe or touch another tenant's rows. Lookups that miss because of an
// ownership mismatch return ErrNotFound rather than revealing existence.

// ErrNotFound is returned when a row does not exist or is owned by a
// different developer.
var ErrNotFound = errors.New("not found or access denied")

type DeveloperRepo interface {
	CreateDeveloper(ctx context.Context, d *models.Developer) (int64, error)
	GetDeveloperByID(ctx context.Context, id int64) (*models.Developer, error)
	GetDeveloperByEmail(ctx context.Context, email string) (*models.Developer, error)
	ListDeveloperIDs(ctx context.Context) ([]int64, error)
}

type SiteRepo interface {
	// GetOrCreateSite returns the site for (developerID, url), creating it on
	// first scan of a new URL. The url must already be normalized.
	GetOrCreateSite(ctx context.Context, developerID int64, url, name string) (*models.Site, error)
	GetSite(ctx context.Context, developerID, id int64) (*models.Site, error)
	ListActiveSites(ctx context.Context, developerID int64) ([]models.Site, error)
	SetLastScan(ctx context.Context, siteID, scanID int64) error
	RenameSite(ctx context.Context, developerID, id int64, name string) error
}

type ScanRepo interface {
	CreateScan(ctx context.Context, s *models.Scan) (int64, error)
	GetScan(ctx context.Context, developerID, id int64) (*models.Scan, error)
	// LatestCompletedScan returns the newest completed scan for a site, or
	// nil when the site has none.
	LatestCompletedScan(ctx context.Context, siteID int64) (*models.Scan, error)
	// ListCompletedScans returns completed scans with created in [from, to),
	// newest first, capped at limit (limit <= 0 means no cap).
	ListCompletedScans(ctx context.Context, siteID int64, from, to int64, limit int) ([]models.Scan, error)
}

type RecommendationRepo interface {
	CreateRecommendations(ctx context.Context, recs []models.Recommendation) error
	ListRecommendations(ctx context.Context, scanID int64) ([]models.Recommendation, error)
}

type BaselineRepo interface {
	// CreateBaseline inserts b as the current baseline, atomically clearing
	// the is_current flag on any previous baseline for the same site.
	CreateBaseline(ctx context.Context, b *models.Baseline) (int64, error)
	// CurrentBaseline returns the single current baseline for a site, or nil.
	CurrentBaseline(ctx context.Context, siteID int64) (*models.Baseline, error)
	ListBaselines(ctx context.Context, developerID, siteID int64) ([]models.Baseline, error)
}

type AlertRepo interface {
	CreateAlert(ctx context.Context, a *models.Alert) (int64, error)
	ListAlerts(ctx context.Context, developerID int64, status string, limit int) ([]models.Alert, error)
	// ListAlertsInRange returns a site's alerts with created in [from, to).
	ListAlertsInRange(ctx context.Context, siteID int64, from, to int64) ([]models.Alert, error)
	// UpdateAlertStatus transitions an alert's status, ownership-checked.
	// acknowledgedAt is stored when non-nil.
	UpdateAlertStatus(ctx context.Context, developerID, id int64, status string, acknowledgedAt *int64) error
}

type CompetitorRepo interface {
	// CreateCompetitorSet inserts the set and bulk-inserts its member sites.
	CreateCompetitorSet(ctx context.Context, set *models.CompetitorSet, sites []models.CompetitorSite) (int64, error)
	GetCompetitorSet(ctx context.Context, developerID, id int64) (*models.CompetitorSet, []models.CompetitorSite, error)
	ListCompetitorSets(ctx context.Context, developerID int64) ([]models.CompetitorSet, error)
	DeleteCompetitorSet(ctx context.Context, developerID, id int64) error
	// UpdateCompetitorScore refreshes the cached score for one member site.
	UpdateCompetitorScore(ctx context.Context, siteID int64, score int, scanID int64) error
}

type ReportRepo interface {
	GetReport(ctx context.Context, developerID, siteID int64, month string) (*models.MonthlyReport, error)
	CreateReport(ctx context.Context, r *models.MonthlyReport) (int64, error)
	UpdateReport(ctx context.Context, r *models.MonthlyReport) error
	ListReports(ctx context.Context, developerID int64) ([]models.MonthlyReport, error)
}

type UsageRepo interface {
	// GetUsage returns the usage row for (developerID, month), or nil when
	// no counter has been touched this month.
	GetUsage(ctx context.Context, developerID int64, month string) (*models.UsageRecord, error)
	// IncrementUsage atomically bumps one counter column for the month,
	// lazily creating the zero row first. Safe under concurrent callers.
	IncrementUsage(ctx context.Context, developerID int64, month string, counter string) error
}
