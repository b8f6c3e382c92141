package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

const (
	defaultSummaryLimit = 20
	maxSummaryLimit     = 200
)

// SummaryHandler serves the stored job and migration summaries
type SummaryHandler struct {
	summaries interfaces.SummaryStorage
	logger    arbor.ILogger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaries interfaces.SummaryStorage, logger arbor.ILogger) *SummaryHandler {
	return &SummaryHandler{
		summaries: summaries,
		logger:    logger,
	}
}

// ListSummariesHandler returns the most recent summaries, newest first
// GET /api/summaries?limit=20
func (h *SummaryHandler) ListSummariesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, defaultSummaryLimit, maxSummaryLimit)
	summaries, err := h.summaries.ListSummaries(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list summaries")
		WriteError(w, http.StatusInternalServerError, "Failed to list summaries")
		return
	}
	if summaries == nil {
		summaries = []*models.Summary{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summaries": summaries,
		"count":     len(summaries),
		"limit":     limit,
	})
}

// GetSummaryHandler returns one summary
// GET /api/summaries/{id}
func (h *SummaryHandler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/summaries/"), "/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Summary ID is required")
		return
	}

	summary, err := h.summaries.GetSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Summary not found")
			return
		}
		h.logger.Error().Err(err).Str("summary_id", id).Msg("Failed to load summary")
		WriteError(w, http.StatusInternalServerError, "Failed to load summary")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
