package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/agentfolio/axscore/internal/scans"
	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

type ScansHandler struct {
	service *scans.Service
	tracker *usage.Tracker
	scans   repository.ScanRepo
	recs    repository.RecommendationRepo
}

func NewScansHandler(service *scans.Service, tracker *usage.Tracker, scanRepo repository.ScanRepo, recRepo repository.RecommendationRepo) *ScansHandler {
	return &ScansHandler{service: service, tracker: tracker, scans: scanRepo, recs: recRepo}
}

type postScanRequest struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type scanResponse struct {
	Scan            *models.Scan            `json:"scan"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// CreateScan runs a full scan of the requested URL. The quota gate runs
// before any network traffic; the counter is bumped only after the scan
// attempt, whether it completed or failed.
func (h *ScansHandler) CreateScan(w http.ResponseWriter, r *http.Request) {
	devID := developerID(r)

	var req postScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := validateScanURL(req.URL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	month := models.CurrentMonth()
	check, err := h.tracker.CheckUsageLimit(r.Context(), devID, usage.CounterScans, month)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if !check.Allowed {
		writeJSON(w, check, http.StatusTooManyRequests)
		return
	}

	scan, recs, scanErr := h.service.Run(r.Context(), devID, req.URL, req.Name)

	if r.Context().Err() == nil {
		if err := h.tracker.IncrementUsage(r.Context(), devID, usage.CounterScans, month); err != nil {
			logger.Error("increment scan usage", slog.Int64("developer_id", devID), slog.Any("err", err))
		}
	}

	if scanErr != nil {
		http.Error(w, "scan failed: "+scanErr.Error(), http.StatusBadGateway)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	writeJSON(w, scanResponse{Scan: scan, Recommendations: recs}, http.StatusCreated)
}

func (h *ScansHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	scan, err := h.scans.GetScan(r.Context(), developerID(r), id)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	recs, err := h.recs.ListRecommendations(r.Context(), scan.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	writeJSON(w, scanResponse{Scan: scan, Recommendations: recs}, http.StatusOK)
}
