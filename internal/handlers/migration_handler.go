package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/engine"
	"github.com/ternarybob/engel/internal/models"
)

// MigrationHandler starts migration batches
type MigrationHandler struct {
	migrations MigrationStarter
	logger     arbor.ILogger
}

// NewMigrationHandler creates a new migration handler
func NewMigrationHandler(migrations MigrationStarter, logger arbor.ILogger) *MigrationHandler {
	return &MigrationHandler{
		migrations: migrations,
		logger:     logger,
	}
}

// ListPlansHandler returns the available plan names
// GET /api/migrations
func (h *MigrationHandler) ListPlansHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plans": engine.PlanNames(),
	})
}

// StartMigrationHandler launches a plan in the background
// POST /api/migrations/{plan}
func (h *MigrationHandler) StartMigrationHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	planName := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/migrations/"), "/")
	if planName == "" {
		WriteError(w, http.StatusBadRequest, "Migration plan is required")
		return
	}

	id, err := h.migrations.Start(planName)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownPlan):
			WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrOperationActive):
			WriteError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Str("plan", planName).Msg("Failed to start migration")
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.logger.Info().Str("plan", planName).Str("migration_id", id).Msg("Migration started")
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":       "started",
		"plan":         planName,
		"migration_id": id,
	})
}
