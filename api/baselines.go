package api

import (
	"encoding/json"
	"net/http"

	"github.com/agentfolio/axscore/internal/baseline"
	"github.com/agentfolio/axscore/pkg/models"
)

type BaselinesHandler struct {
	manager *baseline.Manager
}

func NewBaselinesHandler(m *baseline.Manager) *BaselinesHandler {
	return &BaselinesHandler{manager: m}
}

type createBaselineRequest struct {
	ScanID int64  `json:"scan_id"`
	Label  string `json:"label,omitempty"`
}

func (h *BaselinesHandler) CreateBaseline(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req createBaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ScanID <= 0 {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return
	}

	b, err := h.manager.Create(r.Context(), developerID(r), siteID, req.ScanID, req.Label)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, b, http.StatusCreated)
}

func (h *BaselinesHandler) GetCurrentBaseline(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.manager.Current(r.Context(), developerID(r), siteID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if b == nil {
		http.Error(w, "no baseline set", http.StatusNotFound)
		return
	}
	writeJSON(w, b, http.StatusOK)
}

func (h *BaselinesHandler) ListBaselines(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.manager.List(r.Context(), developerID(r), siteID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if items == nil {
		items = []models.Baseline{}
	}
	writeJSON(w, map[string]any{"items": items}, http.StatusOK)
}
