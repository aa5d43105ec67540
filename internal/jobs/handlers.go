package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agentfolio/axscore/internal/alerts"
	"github.com/agentfolio/axscore/internal/report"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

// WeeklyAlertsPayload targets one developer, or every developer when
// DeveloperID is zero.
type WeeklyAlertsPayload struct {
	DeveloperID int64 `json:"developer_id,omitempty"`
}

// MonthlyReportPayload targets one site and month. A zero DeveloperID fans
// out to every developer's active sites; an empty Month means the previous
// calendar month.
type MonthlyReportPayload struct {
	DeveloperID int64  `json:"developer_id,omitempty"`
	SiteID      int64  `json:"site_id,omitempty"`
	Month       string `json:"month,omitempty"`
}

// Handlers wires the background job types to the services that do the work.
type Handlers struct {
	repo       *Repository
	alerts     *alerts.Generator
	reports    *report.Generator
	developers repository.DeveloperRepo
	sites      repository.SiteRepo
	logger     *slog.Logger
}

func NewHandlers(repo *Repository, alertGen *alerts.Generator, reportGen *report.Generator, developers repository.DeveloperRepo, sites repository.SiteRepo, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{repo: repo, alerts: alertGen, reports: reportGen, developers: developers, sites: sites, logger: logger}
}

// Map returns the handler table for the worker pool.
func (h *Handlers) Map() map[string]Handler {
	return map[string]Handler{
		TypeWeeklyAlerts:  h.handleWeeklyAlerts,
		TypeMonthlyReport: h.handleMonthlyReport,
	}
}

func (h *Handlers) handleWeeklyAlerts(ctx context.Context, j *Job) error {
	var p WeeklyAlertsPayload
	if err := unmarshalPayload(j.Payload, &p); err != nil {
		return err
	}

	if p.DeveloperID == 0 {
		ids, err := h.developers.ListDeveloperIDs(ctx)
		if err != nil {
			return fmt.Errorf("list developers: %w", err)
		}
		for _, id := range ids {
			if err := h.enqueue(ctx, TypeWeeklyAlerts, WeeklyAlertsPayload{DeveloperID: id}, j.Priority); err != nil {
				return err
			}
		}
		return nil
	}

	count, err := h.alerts.GenerateWeeklyAlerts(ctx, p.DeveloperID)
	if err != nil {
		return err
	}
	h.logger.Info("weekly alert sweep finished",
		slog.Int64("developer_id", p.DeveloperID),
		slog.Int("alerts", count))
	return nil
}

func (h *Handlers) handleMonthlyReport(ctx context.Context, j *Job) error {
	var p MonthlyReportPayload
	if err := unmarshalPayload(j.Payload, &p); err != nil {
		return err
	}

	month := previousMonth()
	if p.Month != "" {
		m, err := models.ParseMonth(p.Month)
		if err != nil {
			return err
		}
		month = m
	}

	if p.DeveloperID == 0 {
		return h.fanOutReports(ctx, month, j.Priority)
	}

	r, err := h.reports.Generate(ctx, p.DeveloperID, p.SiteID, month)
	if err != nil {
		return err
	}
	h.logger.Info("monthly report generated",
		slog.Int64("developer_id", p.DeveloperID),
		slog.Int64("site_id", p.SiteID),
		slog.String("month", r.Month),
		slog.String("model", r.ModelName))
	return nil
}

func (h *Handlers) fanOutReports(ctx context.Context, month models.Month, priority int) error {
	ids, err := h.developers.ListDeveloperIDs(ctx)
	if err != nil {
		return fmt.Errorf("list developers: %w", err)
	}
	for _, devID := range ids {
		sites, err := h.sites.ListActiveSites(ctx, devID)
		if err != nil {
			return fmt.Errorf("list sites for developer %d: %w", devID, err)
		}
		for _, s := range sites {
			p := MonthlyReportPayload{DeveloperID: devID, SiteID: s.ID, Month: month.String()}
			if err := h.enqueue(ctx, TypeMonthlyReport, p, priority); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handlers) enqueue(ctx context.Context, typ string, payload any, priority int) error {
	b, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	_, err = h.repo.Enqueue(ctx, &Job{Type: typ, Payload: b, Priority: priority})
	return err
}

func previousMonth() models.Month {
	return models.CurrentMonth().Prev()
}

func marshalPayload(payload any) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

func unmarshalPayload(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
