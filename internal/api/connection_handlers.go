package api

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/importer"
	"github.com/linkpilot/linkpilot/internal/models"
)

// maxImportSize caps connection CSV uploads at 20 MB, far above any real
// LinkedIn export.
const maxImportSize = 20 << 20

// ConnectionHandler exposes the imported network and per-connection
// engagement data.
type ConnectionHandler struct {
	connections models.ConnectionRepository
	summaries   models.EngagementSummaryRepository
	events      models.EngagementEventRepository
	importer    *importer.Importer
	logger      *slog.Logger
}

// NewConnectionHandler creates a connection handler.
func NewConnectionHandler(
	connections models.ConnectionRepository,
	summaries models.EngagementSummaryRepository,
	events models.EngagementEventRepository,
	imp *importer.Importer,
	logger *slog.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		summaries:   summaries,
		events:      events,
		importer:    imp,
		logger:      logger,
	}
}

// List handles GET /api/connections.
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	connections, err := h.connections.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list connections", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list connections")
		return
	}
	if connections == nil {
		connections = []*models.Connection{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"connections": connections})
}

// Import handles POST /api/connections/import. The body is the CSV file from
// LinkedIn's data export, either raw or as the "file" field of a multipart
// form.
func (h *ConnectionHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	reader := r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "missing file upload")
			return
		}
		defer file.Close()
		reader = file
	}

	result, err := h.importer.Import(r.Context(), reader)
	if err != nil {
		h.logger.Error("connections import failed", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

// Engagement handles GET /api/connections/:id/engagement: the summary plus
// the raw event log for one connection.
func (h *ConnectionHandler) Engagement(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/connections/"), "/engagement")
	if id == "" {
		writeError(w, h.logger, http.StatusBadRequest, "connection id is required")
		return
	}

	conn, err := h.connections.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load connection", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load connection")
		return
	}
	if conn == nil {
		writeError(w, h.logger, http.StatusNotFound, "connection not found")
		return
	}

	summary, err := h.summaries.GetByConnection(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load summary", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load summary")
		return
	}

	events, err := h.events.ListByConnection(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load events", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load events")
		return
	}
	if events == nil {
		events = []*models.EngagementEvent{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"connection": conn,
		"summary":    summary,
		"events":     events,
	})
}
