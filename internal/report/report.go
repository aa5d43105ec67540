// Package report compiles a calendar month of scans and alerts into a
// narrative monthly report. Generation is idempotent per
// (developer, site, month): an already-generated report is returned as-is
// without touching the AI provider again.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/agentfolio/axscore/internal/textgen"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

const systemPrompt = `You are writing an executive summary of a website's AI-discoverability performance for one month. Given the score trend, category trends, and alert counts, respond with a JSON object with keys: title (short headline), summary (2-4 sentences), and actionItems (array of at most 5 short imperative strings). Respond with the JSON object only.`

type Generator struct {
	reports repository.ReportRepo
	scans   repository.ScanRepo
	alerts  repository.AlertRepo
	sites   repository.SiteRepo
	engine  *textgen.Engine
	logger  *slog.Logger
}

func NewGenerator(reports repository.ReportRepo, scans repository.ScanRepo, alerts repository.AlertRepo, sites repository.SiteRepo, engine *textgen.Engine, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{reports: reports, scans: scans, alerts: alerts, sites: sites, engine: engine, logger: logger}
}

// narrative matches the JSON shape of the AI (and fallback) output.
type narrative struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	ActionItems []string `json:"actionItems"`
}

// Generate builds (or returns) the report for the site and month. On an
// unrecoverable error mid-generation the row is marked failed and the error
// returned; the report is never left stuck in generating.
func (g *Generator) Generate(ctx context.Context, developerID, siteID int64, month models.Month) (*models.MonthlyReport, error) {
	site, err := g.sites.GetSite(ctx, developerID, siteID)
	if err != nil {
		return nil, err
	}

	monthKey := month.String()
	existing, err := g.reports.GetReport(ctx, developerID, siteID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if existing != nil && existing.Status == models.ReportStatusGenerated {
		return existing, nil
	}

	r := existing
	if r == nil {
		r = &models.MonthlyReport{
			DeveloperID: developerID,
			SiteID:      siteID,
			Month:       monthKey,
			Status:      models.ReportStatusGenerating,
		}
		id, err := g.reports.CreateReport(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("create report row: %w", err)
		}
		r.ID = id
	} else {
		// resume a failed or interrupted generation
		r.Status = models.ReportStatusGenerating
	}

	if err := g.fill(ctx, site, r, month); err != nil {
		r.Status = models.ReportStatusFailed
		if upErr := g.reports.UpdateReport(ctx, r); upErr != nil {
			g.logger.Error("mark report failed", slog.Int64("report_id", r.ID), slog.Any("err", upErr))
		}
		return nil, err
	}

	r.Status = models.ReportStatusGenerated
	if err := g.reports.UpdateReport(ctx, r); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	return r, nil
}

func (g *Generator) fill(ctx context.Context, site *models.Site, r *models.MonthlyReport, month models.Month) error {
	from := month.Start().UnixMilli()
	to := month.End().UnixMilli()

	scans, err := g.scans.ListCompletedScans(ctx, site.ID, from, to, 0)
	if err != nil {
		return fmt.Errorf("list scans: %w", err)
	}
	// repository order is newest first; trends want chronological
	sort.Slice(scans, func(i, j int) bool { return scans[i].Created < scans[j].Created })

	monthAlerts, err := g.alerts.ListAlertsInRange(ctx, site.ID, from, to)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	r.ScoreTrend = scoreTrend(scans)
	r.CategoryTrends = categoryTrends(scans)
	r.TopRegressions, r.TopImprovements = alertHighlights(monthAlerts)
	r.AlertCount = len(monthAlerts)

	prompt := buildPrompt(site, month, r, len(scans))
	res := g.engine.GenerateJSON(ctx, systemPrompt, prompt, "report", func() json.RawMessage {
		b, _ := json.Marshal(fallbackNarrative(site, month, scans, r.CategoryTrends))
		return b
	})

	var n narrative
	if err := json.Unmarshal(res.Payload, &n); err != nil {
		n = fallbackNarrative(site, month, scans, r.CategoryTrends)
		res.ModelName = textgen.FallbackModelName
	}
	if len(n.ActionItems) > 5 {
		n.ActionItems = n.ActionItems[:5]
	}

	r.Title = n.Title
	if r.Title == "" {
		r.Title = fmt.Sprintf("AX Score report for %s - %s", site.URL, month)
	}
	r.Summary = n.Summary
	r.ActionItems = n.ActionItems
	r.ModelName = res.ModelName
	return nil
}

func scoreTrend(scans []models.Scan) []models.TrendPoint {
	out := make([]models.TrendPoint, 0, len(scans))
	for _, s := range scans {
		out = append(out, models.TrendPoint{
			Date:  time.UnixMilli(s.Created).UTC().Format("2006-01-02"),
			Score: s.Score,
		})
	}
	return out
}

func categoryTrends(scans []models.Scan) []models.CategoryTrend {
	if len(scans) == 0 {
		return nil
	}
	first, last := scans[0], scans[len(scans)-1]

	cats := make([]string, 0, len(first.CategoryScores))
	for cat := range first.CategoryScores {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	out := make([]models.CategoryTrend, 0, len(cats))
	for _, cat := range cats {
		f := first.CategoryScores[cat]
		l, ok := last.CategoryScores[cat]
		if !ok {
			l = f
		}
		out = append(out, models.CategoryTrend{Category: cat, First: f, Last: l, Delta: l - f})
	}
	return out
}

// alertHighlights sources the regression and improvement lists from the
// month's alerts rather than recomputing detections.
func alertHighlights(alerts []models.Alert) (regressions, improvements []string) {
	for _, a := range alerts {
		switch a.AlertType {
		case models.AlertTypeRegression:
			regressions = append(regressions, a.Title)
		case models.AlertTypeImprovement:
			improvements = append(improvements, a.Title)
		}
	}
	if len(regressions) > 5 {
		regressions = regressions[:5]
	}
	if len(improvements) > 5 {
		improvements = improvements[:5]
	}
	return regressions, improvements
}

func buildPrompt(site *models.Site, month models.Month, r *models.MonthlyReport, scanCount int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Site: %s\nMonth: %s\nCompleted scans: %d\nAlerts: %d\n", site.URL, month, scanCount, r.AlertCount)
	if len(r.ScoreTrend) > 0 {
		fmt.Fprintf(&sb, "Score trend: first %d, last %d\n",
			r.ScoreTrend[0].Score, r.ScoreTrend[len(r.ScoreTrend)-1].Score)
	}
	for _, ct := range r.CategoryTrends {
		fmt.Fprintf(&sb, "Category %s: %d -> %d (%+d)\n", ct.Category, ct.First, ct.Last, ct.Delta)
	}
	for _, t := range r.TopRegressions {
		fmt.Fprintf(&sb, "Regression: %s\n", t)
	}
	for _, t := range r.TopImprovements {
		fmt.Fprintf(&sb, "Improvement: %s\n", t)
	}
	return sb.String()
}

// fallbackNarrative is the deterministic template used when the AI path is
// unavailable: a summary sentence from the first/last score delta and up to
// five action items derived from declining category trends.
func fallbackNarrative(site *models.Site, month models.Month, scans []models.Scan, trends []models.CategoryTrend) narrative {
	n := narrative{Title: fmt.Sprintf("AX Score report for %s - %s", site.URL, month)}

	if len(scans) == 0 {
		n.Summary = fmt.Sprintf("No completed scans were recorded for %s in %s.", site.URL, month)
		n.ActionItems = []string{"Run a scan to start tracking this site's AI discoverability."}
		return n
	}

	first := scans[0].Score
	last := scans[len(scans)-1].Score
	switch {
	case last > first:
		n.Summary = fmt.Sprintf("The AX Score of %s rose from %d to %d over %s across %d scans.", site.URL, first, last, month, len(scans))
	case last < first:
		n.Summary = fmt.Sprintf("The AX Score of %s fell from %d to %d over %s across %d scans.", site.URL, first, last, month, len(scans))
	default:
		n.Summary = fmt.Sprintf("The AX Score of %s held steady at %d over %s across %d scans.", site.URL, last, month, len(scans))
	}

	declining := make([]models.CategoryTrend, 0, len(trends))
	for _, ct := range trends {
		if ct.Delta < 0 {
			declining = append(declining, ct)
		}
	}
	sort.Slice(declining, func(i, j int) bool { return declining[i].Delta < declining[j].Delta })
	for _, ct := range declining {
		if len(n.ActionItems) == 5 {
			break
		}
		n.ActionItems = append(n.ActionItems,
			fmt.Sprintf("Recover the %s category, which dropped %d points this month.", ct.Category, -ct.Delta))
	}
	if len(n.ActionItems) == 0 {
		n.ActionItems = []string{"Keep the current signal set in place and rescan regularly."}
	}
	return n
}
