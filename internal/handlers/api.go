package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
)

// APIHandler serves the system endpoints
type APIHandler struct {
	operations OperationController
	logger     arbor.ILogger
}

func NewAPIHandler(operations OperationController, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		operations: operations,
		logger:     logger,
	}
}

// VersionHandler reports the build of the running engine
// GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.Version,
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler answers liveness checks with the operation lock state, so a
// probe can tell an idle engine from one draining a queue or a migration
// GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	response := map[string]interface{}{"status": "ok"}
	if h.operations != nil {
		response["operation"] = h.operations.State()
	}
	WriteJSON(w, http.StatusOK, response)
}

// NotFoundHandler answers unmatched paths in the API error shape
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("No route")
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"status": "error",
		"error":  "no such endpoint",
		"path":   r.URL.Path,
	})
}
