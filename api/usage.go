package api

import (
	"net/http"

	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/models"
)

type UsageHandler struct {
	tracker *usage.Tracker
}

func NewUsageHandler(t *usage.Tracker) *UsageHandler {
	return &UsageHandler{tracker: t}
}

// GetUsage returns the caller's counters for the requested month (default:
// current).
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	month := models.CurrentMonth()
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := models.ParseMonth(v)
		if err != nil {
			http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		month = m
	}

	rec, err := h.tracker.Usage(r.Context(), developerID(r), month)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, rec, http.StatusOK)
}
