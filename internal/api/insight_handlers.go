package api

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
)

// InsightHandler serves the daily network reports.
type InsightHandler struct {
	userID   string
	insights models.NetworkInsightRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewInsightHandler creates an insight handler.
func NewInsightHandler(userID string, insights models.NetworkInsightRepository, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{
		userID:   userID,
		insights: insights,
		logger:   logger,
		now:      time.Now,
	}
}

// List handles GET /api/insights. An optional ?date=YYYY-MM-DD selects a past
// snapshot; the default is today.
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	insights, err := h.insights.ListByDate(r.Context(), h.userID, date)
	if err != nil {
		h.logger.Error("failed to list insights", "date", date, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list insights")
		return
	}
	if insights == nil {
		insights = []*models.NetworkInsight{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"date":     date,
		"insights": insights,
	})
}
