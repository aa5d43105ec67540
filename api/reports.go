package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/agentfolio/axscore/internal/report"
	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

type ReportsHandler struct {
	generator *report.Generator
	reports   repository.ReportRepo
	tracker   *usage.Tracker
}

func NewReportsHandler(g *report.Generator, reports repository.ReportRepo, t *usage.Tracker) *ReportsHandler {
	return &ReportsHandler{generator: g, reports: reports, tracker: t}
}

type generateReportRequest struct {
	SiteID int64  `json:"site_id"`
	Month  string `json:"month"`
}

// GenerateReport builds (or returns) the monthly report for a site.
// Generation is idempotent, so re-requesting an existing report costs no
// quota; only a fresh generation is metered.
func (h *ReportsHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	devID := developerID(r)

	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.SiteID <= 0 {
		http.Error(w, "site_id is required", http.StatusBadRequest)
		return
	}
	month, err := models.ParseMonth(req.Month)
	if err != nil {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	existing, err := h.reports.GetReport(r.Context(), devID, req.SiteID, month.String())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if existing != nil && existing.Status == models.ReportStatusGenerated {
		writeJSON(w, existing, http.StatusOK)
		return
	}

	curMonth := models.CurrentMonth()
	check, err := h.tracker.CheckUsageLimit(r.Context(), devID, usage.CounterGenerations, curMonth)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if !check.Allowed {
		writeJSON(w, check, http.StatusTooManyRequests)
		return
	}

	rep, err := h.generator.Generate(r.Context(), devID, req.SiteID, month)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	if err := h.tracker.IncrementUsage(r.Context(), devID, usage.CounterGenerations, curMonth); err != nil {
		logger.Error("increment generation usage", slog.Int64("developer_id", devID), slog.Any("err", err))
	}
	writeJSON(w, rep, http.StatusCreated)
}

func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.ListReports(r.Context(), developerID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if items == nil {
		items = []models.MonthlyReport{}
	}
	writeJSON(w, map[string]any{"items": items}, http.StatusOK)
}

func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	month, err := models.ParseMonth(mux.Vars(r)["month"])
	if err != nil {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	rep, err := h.reports.GetReport(r.Context(), developerID(r), siteID, month.String())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if rep == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rep, http.StatusOK)
}
