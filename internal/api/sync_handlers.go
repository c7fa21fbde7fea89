package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/syncer"
)

const defaultSessionListLimit = 30

// SyncHandler exposes the sync engine: manual triggers, session history and
// queue composition.
type SyncHandler struct {
	orchestrator *syncer.Orchestrator
	sessions     models.SyncSessionRepository
	queue        *syncer.Queue
	logger       *slog.Logger
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(
	orchestrator *syncer.Orchestrator,
	sessions models.SyncSessionRepository,
	queue *syncer.Queue,
	logger *slog.Logger,
) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		sessions:     sessions,
		queue:        queue,
		logger:       logger,
	}
}

// Trigger handles POST /api/sync/trigger. The run happens in the background;
// the session row is the progress report. A run already in flight yields a
// conflict instead of a second session.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	unfinished, err := h.sessions.LatestUnfinished(r.Context())
	if err != nil {
		h.logger.Error("failed to check for running session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to check sync state")
		return
	}
	if unfinished != nil && unfinished.Status == models.SyncStatusRunning {
		writeError(w, h.logger, http.StatusConflict, "a sync run is already in progress")
		return
	}

	go func() {
		// The run outlives the request.
		if err := h.orchestrator.Run(context.Background()); err != nil {
			if errors.Is(err, syncer.ErrSyncAlreadyRunning) {
				return
			}
			h.logger.Error("manual sync run failed", "error", err)
		}
	}()

	writeJSON(w, h.logger, http.StatusAccepted, map[string]string{"status": "started"})
}

// Status handles GET /api/sync/status: the latest sessions, newest first.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	sessions, err := h.sessions.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sync sessions", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*models.SyncSession{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"sessions": sessions})
}

// QueueStats handles GET /api/sync/queue.
func (h *SyncHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to read queue stats", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to read queue stats")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, stats)
}
