package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

type SitesHandler struct {
	sites repository.SiteRepo
	scans repository.ScanRepo
}

func NewSitesHandler(sites repository.SiteRepo, scans repository.ScanRepo) *SitesHandler {
	return &SitesHandler{sites: sites, scans: scans}
}

func (h *SitesHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.sites.ListActiveSites(r.Context(), developerID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if sites == nil {
		sites = []models.Site{}
	}
	writeJSON(w, map[string]any{"items": sites}, http.StatusOK)
}

func (h *SitesHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	site, err := h.sites.GetSite(r.Context(), developerID(r), id)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, site, http.StatusOK)
}

type renameSiteRequest struct {
	Name string `json:"name"`
}

func (h *SitesHandler) RenameSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req renameSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.sites.RenameSite(r.Context(), developerID(r), id, req.Name); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSiteScans returns the site's completed scan history, newest first. The
// optional from/to query params are millisecond timestamps.
func (h *SitesHandler) ListSiteScans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// ownership check before touching scan history
	if _, err := h.sites.GetSite(r.Context(), developerID(r), id); err != nil {
		writeRepoError(w, err)
		return
	}

	q := r.URL.Query()
	from := int64(0)
	if v := q.Get("from"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			from = ms
		}
	}
	to := time.Now().UTC().UnixMilli() + 1
	if v := q.Get("to"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			to = ms
		}
	}
	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	items, err := h.scans.ListCompletedScans(r.Context(), id, from, to, limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if items == nil {
		items = []models.Scan{}
	}
	writeJSON(w, map[string]any{"items": items, "limit": limit}, http.StatusOK)
}
