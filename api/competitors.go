package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/agentfolio/axscore/internal/benchmark"
	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/models"
)

const maxCompetitorSites = 10

type CompetitorsHandler struct {
	service *benchmark.Service
	tracker *usage.Tracker
}

func NewCompetitorsHandler(s *benchmark.Service, t *usage.Tracker) *CompetitorsHandler {
	return &CompetitorsHandler{service: s, tracker: t}
}

type createSetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Sites       []struct {
		URL  string `json:"url"`
		Name string `json:"name,omitempty"`
	} `json:"sites"`
}

func (h *CompetitorsHandler) CreateSet(w http.ResponseWriter, r *http.Request) {
	var req createSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if len(req.Sites) == 0 || len(req.Sites) > maxCompetitorSites {
		http.Error(w, "sites must contain between 1 and 10 entries", http.StatusBadRequest)
		return
	}

	in := benchmark.SetInput{Name: req.Name, Description: req.Description, Industry: req.Industry}
	for _, s := range req.Sites {
		if err := validateScanURL(s.URL); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in.Sites = append(in.Sites, benchmark.SiteInput{URL: s.URL, Name: s.Name})
	}

	set, err := h.service.CreateSet(r.Context(), developerID(r), in)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, set, http.StatusCreated)
}

func (h *CompetitorsHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSets(r.Context(), developerID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if items == nil {
		items = []models.CompetitorSet{}
	}
	writeJSON(w, map[string]any{"items": items}, http.StatusOK)
}

type setResponse struct {
	Set   *models.CompetitorSet   `json:"set"`
	Sites []models.CompetitorSite `json:"sites"`
}

func (h *CompetitorsHandler) GetSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	set, sites, err := h.service.GetSet(r.Context(), developerID(r), id)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if sites == nil {
		sites = []models.CompetitorSite{}
	}
	writeJSON(w, setResponse{Set: set, Sites: sites}, http.StatusOK)
}

func (h *CompetitorsHandler) DeleteSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteSet(r.Context(), developerID(r), id); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Compare runs the benchmark snapshot. Comparisons are metered as
// simulations.
func (h *CompetitorsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	devID := developerID(r)

	month := models.CurrentMonth()
	check, err := h.tracker.CheckUsageLimit(r.Context(), devID, usage.CounterSimulations, month)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if !check.Allowed {
		writeJSON(w, check, http.StatusTooManyRequests)
		return
	}

	cmp, err := h.service.RunComparison(r.Context(), devID, id)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	if err := h.tracker.IncrementUsage(r.Context(), devID, usage.CounterSimulations, month); err != nil {
		logger.Error("increment simulation usage", slog.Int64("developer_id", devID), slog.Any("err", err))
	}
	writeJSON(w, cmp, http.StatusOK)
}

// RefreshCompetitor rescans one member of the set and updates its cached
// score.
func (h *CompetitorsHandler) RefreshCompetitor(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	siteID, err := pathID(r, "site_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RefreshCompetitor(r.Context(), developerID(r), setID, siteID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
