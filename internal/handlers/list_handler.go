package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/scraping"
)

// ListRequest is the body of PUT /api/list
type ListRequest struct {
	Names []string `json:"names" validate:"required,dive,max=100"`
}

// ListHandler manages the name list read by LIST jobs
type ListHandler struct {
	lists  interfaces.ListStorage
	logger arbor.ILogger
}

// NewListHandler creates a new list handler
func NewListHandler(lists interfaces.ListStorage, logger arbor.ILogger) *ListHandler {
	return &ListHandler{
		lists:  lists,
		logger: logger,
	}
}

// GetListHandler returns the stored names
// GET /api/list
func (h *ListHandler) GetListHandler(w http.ResponseWriter, r *http.Request) {
	names, err := h.lists.GetList(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load name list")
		WriteError(w, http.StatusInternalServerError, "Failed to load name list")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"names": names,
		"count": len(names),
	})
}

// SetListHandler replaces the stored names with the cleaned request list
// PUT /api/list
func (h *ListHandler) SetListHandler(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	names := scraping.CleanList(req.Names)
	if err := h.lists.SetList(r.Context(), names); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save name list")
		WriteError(w, http.StatusInternalServerError, "Failed to save name list")
		return
	}

	h.logger.Info().Int("count", len(names)).Msg("Name list saved")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"names": names,
		"count": len(names),
	})
}

// ClearListHandler removes every stored name
// DELETE /api/list
func (h *ListHandler) ClearListHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.ClearList(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear name list")
		WriteError(w, http.StatusInternalServerError, "Failed to clear name list")
		return
	}

	WriteSuccess(w, "Name list cleared")
}
