package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentfolio/axscore/internal/alerts"
	"github.com/agentfolio/axscore/pkg/models"
)

type AlertsHandler struct {
	generator *alerts.Generator
}

func NewAlertsHandler(g *alerts.Generator) *AlertsHandler {
	return &AlertsHandler{generator: g}
}

func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusResolved, models.AlertStatusDismissed:
	default:
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	items, err := h.generator.List(r.Context(), developerID(r), status, limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if items == nil {
		items = []models.Alert{}
	}
	writeJSON(w, map[string]any{"items": items, "limit": limit}, http.StatusOK)
}

type updateAlertRequest struct {
	Status string `json:"status"`
}

func (h *AlertsHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusResolved, models.AlertStatusDismissed:
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := h.generator.UpdateStatus(r.Context(), developerID(r), id, req.Status); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunSweep triggers the weekly alert sweep for the caller on demand, outside
// the scheduled job.
func (h *AlertsHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	count, err := h.generator.GenerateWeeklyAlerts(r.Context(), developerID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, map[string]any{"created": count}, http.StatusOK)
}
