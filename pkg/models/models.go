package models

// Domain models matching the database schema in db/migrations/0001_init.sql

// Scan status values.
const (
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// Alert types, severities and statuses.
const (
	AlertTypeRegression  = "regression"
	AlertTypeImprovement = "improvement"
	AlertTypeVolatility  = "volatility"

	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"

	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
	AlertStatusDismissed    = "dismissed"
)

// Monthly report statuses.
const (
	ReportStatusGenerating = "generating"
	ReportStatusGenerated  = "generated"
	ReportStatusFailed     = "failed"
)

// Site statuses.
const (
	SiteStatusActive   = "active"
	SiteStatusArchived = "archived"
)

// Signal records whether one AI-discoverability artifact was found on a site,
// plus where it was fetched from and a truncated excerpt of its content.
type Signal struct {
	Found   bool   `json:"found"`
	URL     string `json:"url,omitempty"`
	Details string `json:"details,omitempty"`
}

// SignalSet maps signal names (robotsTxt, llmsTxt, ...) to their results.
type SignalSet map[string]Signal

// FoundCount returns how many signals in the set were found.
func (s SignalSet) FoundCount() int {
	n := 0
	for _, sig := range s {
		if sig.Found {
			n++
		}
	}
	return n
}

type Developer struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Plan         string `json:"plan" db:"plan"`
	Updated      int64  `json:"updated" db:"updated"`
	PasswordHash string `json:"password_hash,omitempty" db:"password_hash"`
}

type Site struct {
	ID          int64  `json:"id" db:"id"`
	DeveloperID int64  `json:"developer_id" db:"developer_id"`
	URL         string `json:"url" db:"url"`
	Name        string `json:"name,omitempty" db:"name"`
	Status      string `json:"status" db:"status"`
	LastScanID  *int64 `json:"last_scan_id,omitempty" db:"last_scan_id"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

// Scan is the atomic unit all downstream analysis reads. Immutable once
// persisted.
type Scan struct {
	ID             int64          `json:"id" db:"id"`
	SiteID         int64          `json:"site_id" db:"site_id"`
	DeveloperID    int64          `json:"developer_id" db:"developer_id"`
	URL            string         `json:"url" db:"url"`
	Score          int            `json:"score" db:"score"`
	CategoryScores map[string]int `json:"category_scores" db:"category_scores"`
	Signals        SignalSet      `json:"signals" db:"signals"`
	ModelOutput    string         `json:"model_output,omitempty" db:"model_output"`
	ModelName      string         `json:"model_name" db:"model_name"`
	ScanType       string         `json:"scan_type" db:"scan_type"`
	Status         string         `json:"status" db:"status"`
	DurationMs     int64          `json:"duration_ms" db:"duration_ms"`
	Created        int64          `json:"created" db:"created"`
}

type Recommendation struct {
	ID           int64  `json:"id" db:"id"`
	ScanID       int64  `json:"scan_id" db:"scan_id"`
	Category     string `json:"category" db:"category"`
	Priority     string `json:"priority" db:"priority"`
	Title        string `json:"title" db:"title"`
	Description  string `json:"description" db:"description"`
	CurrentState string `json:"current_state,omitempty" db:"current_state"`
	SuggestedFix string `json:"suggested_fix,omitempty" db:"suggested_fix"`
	ImpactScore  *int   `json:"impact_score,omitempty" db:"impact_score"`
}

// Baseline is a frozen snapshot of a scan used as the comparison point for
// regression detection. At most one baseline per site has IsCurrent set.
type Baseline struct {
	ID             int64          `json:"id" db:"id"`
	SiteID         int64          `json:"site_id" db:"site_id"`
	DeveloperID    int64          `json:"developer_id" db:"developer_id"`
	ScanID         int64          `json:"scan_id" db:"scan_id"`
	Score          int            `json:"score" db:"score"`
	CategoryScores map[string]int `json:"category_scores" db:"category_scores"`
	Signals        SignalSet      `json:"signals" db:"signals"`
	Label          string         `json:"label,omitempty" db:"label"`
	IsCurrent      bool           `json:"is_current" db:"is_current"`
	Created        int64          `json:"created" db:"created"`
}

type Alert struct {
	ID             int64  `json:"id" db:"id"`
	SiteID         int64  `json:"site_id" db:"site_id"`
	DeveloperID    int64  `json:"developer_id" db:"developer_id"`
	ScanID         int64  `json:"scan_id" db:"scan_id"`
	BaselineID     *int64 `json:"baseline_id,omitempty" db:"baseline_id"`
	AlertType      string `json:"alert_type" db:"alert_type"`
	Severity       string `json:"severity" db:"severity"`
	Title          string `json:"title" db:"title"`
	Description    string `json:"description" db:"description"`
	Category       string `json:"category,omitempty" db:"category"`
	ScoreDelta     *int   `json:"score_delta,omitempty" db:"score_delta"`
	PreviousScore  *int   `json:"previous_score,omitempty" db:"previous_score"`
	CurrentScore   *int   `json:"current_score,omitempty" db:"current_score"`
	Status         string `json:"status" db:"status"`
	AcknowledgedAt *int64 `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	Created        int64  `json:"created" db:"created"`
}

type CompetitorSet struct {
	ID          int64  `json:"id" db:"id"`
	DeveloperID int64  `json:"developer_id" db:"developer_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	Industry    string `json:"industry,omitempty" db:"industry"`
	Created     int64  `json:"created" db:"created"`
}

// CompetitorSite caches the latest externally refreshed score for one
// competitor URL in a set.
type CompetitorSite struct {
	ID           int64  `json:"id" db:"id"`
	SetID        int64  `json:"set_id" db:"set_id"`
	URL          string `json:"url" db:"url"`
	Name         string `json:"name,omitempty" db:"name"`
	LatestScore  *int   `json:"latest_score,omitempty" db:"latest_score"`
	LatestScanID *int64 `json:"latest_scan_id,omitempty" db:"latest_scan_id"`
	LastScanned  *int64 `json:"last_scanned,omitempty" db:"last_scanned"`
}

// TrendPoint is one date/score pair in a report's score trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// CategoryTrend compares the first and last scan of a month for one category.
type CategoryTrend struct {
	Category string `json:"category"`
	First    int    `json:"first"`
	Last     int    `json:"last"`
	Delta    int    `json:"delta"`
}

type MonthlyReport struct {
	ID              int64           `json:"id" db:"id"`
	DeveloperID     int64           `json:"developer_id" db:"developer_id"`
	SiteID          int64           `json:"site_id" db:"site_id"`
	Month           string          `json:"month" db:"month"`
	Title           string          `json:"title" db:"title"`
	Summary         string          `json:"summary" db:"summary"`
	ScoreTrend      []TrendPoint    `json:"score_trend" db:"score_trend"`
	CategoryTrends  []CategoryTrend `json:"category_trends" db:"category_trends"`
	TopRegressions  []string        `json:"top_regressions" db:"top_regressions"`
	TopImprovements []string        `json:"top_improvements" db:"top_improvements"`
	ActionItems     []string        `json:"action_items" db:"action_items"`
	AlertCount      int             `json:"alert_count" db:"alert_count"`
	ModelName       string          `json:"model_name" db:"model_name"`
	Status          string          `json:"status" db:"status"`
	Created         int64           `json:"created" db:"created"`
	Updated         int64           `json:"updated" db:"updated"`
}

// UsageRecord tracks per-developer monthly counters. Counters only grow
// within a month; a new month key starts fresh rows.
type UsageRecord struct {
	ID              int64  `json:"id" db:"id"`
	DeveloperID     int64  `json:"developer_id" db:"developer_id"`
	Month           string `json:"month" db:"month"`
	ScansUsed       int    `json:"scans_used" db:"scans_used"`
	SimulationsUsed int    `json:"simulations_used" db:"simulations_used"`
	GenerationsUsed int    `json:"generations_used" db:"generations_used"`
	Updated         int64  `json:"updated" db:"updated"`
}
