package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/engine"
	"github.com/ternarybob/engel/internal/models"
)

// JobRequest is the body of POST /api/jobs. Shape is checked here, per-source
// parameters by models.Job.Validate.
type JobRequest struct {
	SourceKind models.SourceKind `json:"source_kind" validate:"required,oneof=SINGLE LIST FAVORITERS FOLLOWERS TITLE_AUTHORS UNDO_ALL"`
	Mode       models.Mode       `json:"mode" validate:"omitempty,oneof=APPLY REVOKE"`
	TargetSpec models.TargetSpec `json:"target_spec"`
}

// JobHandler handles the job queue API
type JobHandler struct {
	queue      JobQueue
	operations OperationController
	logger     arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(queue JobQueue, operations OperationController, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queue:      queue,
		operations: operations,
		logger:     logger,
	}
}

// CreateJobHandler enqueues a job
// POST /api/jobs
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req JobRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeApply
	}

	job, err := models.NewJob(req.SourceKind, mode, req.TargetSpec)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.queue.Enqueue(job); err != nil {
		switch {
		case errors.Is(err, models.ErrOperationActive):
			WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, models.ErrQueueClosed):
			WriteError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue job")
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "queued",
		"job_id": job.ID,
		"job":    job.Info(),
	})
}

// CancelHandler sets the cancellation signal of the active operation
// POST /api/cancel
func (h *JobHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	cancelled := h.operations.Cancel()
	if cancelled {
		h.logger.Info().Str("state", h.operations.State().String()).Msg("Cancellation requested")
	}

	WriteJSON(w, http.StatusOK, map[string]bool{
		"cancelled": cancelled,
	})
}

// QueueHandler returns the operation state and the pending jobs
// GET /api/queue
func (h *JobHandler) QueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	state := h.operations.State()
	pending := h.queue.Pending()
	if pending == nil {
		pending = []models.JobInfo{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running": state != engine.StateIdle,
		"state":   state,
		"pending": pending,
	})
}
