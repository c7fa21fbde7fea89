package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/linkpilot/linkpilot/internal/models"
)

const (
	defaultPostListLimit = 50
	maxPostTextLength    = 3000 // LinkedIn's share character limit
	trackedPostListSize  = 25
)

// PostHandler manages scheduled drafts and the cache of the user's own posts.
type PostHandler struct {
	scheduled models.ScheduledPostRepository
	tracked   models.TrackedPostRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewPostHandler creates a post handler.
func NewPostHandler(scheduled models.ScheduledPostRepository, tracked models.TrackedPostRepository, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		scheduled: scheduled,
		tracked:   tracked,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateScheduledRequest is the body for scheduling a draft.
type CreateScheduledRequest struct {
	Text      string    `json:"text"`
	PublishAt time.Time `json:"publish_at"`
}

// ListScheduled handles GET /api/posts/scheduled.
func (h *PostHandler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	posts, err := h.scheduled.List(r.Context(), defaultPostListLimit)
	if err != nil {
		h.logger.Error("failed to list scheduled posts", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list scheduled posts")
		return
	}
	if posts == nil {
		posts = []*models.ScheduledPost{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"posts": posts})
}

// CreateScheduled handles POST /api/posts/scheduled.
func (h *PostHandler) CreateScheduled(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, h.logger, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > maxPostTextLength {
		writeError(w, h.logger, http.StatusBadRequest, "text exceeds the character limit")
		return
	}
	if req.PublishAt.IsZero() {
		writeError(w, h.logger, http.StatusBadRequest, "publish_at is required")
		return
	}

	now := h.now().UTC()
	post := &models.ScheduledPost{
		ID:        uuid.New().String(),
		Text:      req.Text,
		PublishAt: req.PublishAt.UTC(),
		Status:    models.PostStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.scheduled.Create(r.Context(), post); err != nil {
		h.logger.Error("failed to create scheduled post", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create scheduled post")
		return
	}

	h.logger.Info("scheduled post created", "id", post.ID, "publish_at", post.PublishAt)
	writeJSON(w, h.logger, http.StatusCreated, post)
}

// DeleteScheduled handles DELETE /api/posts/scheduled/:id. Published drafts
// are kept as history and cannot be removed.
func (h *PostHandler) DeleteScheduled(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/posts/scheduled/")
	if id == "" {
		writeError(w, h.logger, http.StatusBadRequest, "post id is required")
		return
	}

	post, err := h.scheduled.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load scheduled post", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load scheduled post")
		return
	}
	if post == nil {
		writeError(w, h.logger, http.StatusNotFound, "scheduled post not found")
		return
	}
	if post.Status == models.PostStatusPublished {
		writeError(w, h.logger, http.StatusConflict, "published posts cannot be deleted")
		return
	}

	if err := h.scheduled.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete scheduled post", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to delete scheduled post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTracked handles GET /api/posts: the cached copy of the user's own
// posts, highest sync priority first.
func (h *PostHandler) ListTracked(w http.ResponseWriter, r *http.Request) {
	posts, err := h.tracked.ListTop(r.Context(), trackedPostListSize)
	if err != nil {
		h.logger.Error("failed to list tracked posts", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list tracked posts")
		return
	}
	if posts == nil {
		posts = []*models.TrackedPost{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"posts": posts})
}
