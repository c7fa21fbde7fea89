package scheduler

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/social"
)

// Publisher is the slice of the LinkedIn client the post scheduler needs.
type Publisher interface {
	PublishPost(ctx context.Context, text string) (string, error)
}

// PostScheduler publishes scheduled posts once their publish time passes.
// Publication calls are covered by the daily reserve rather than the sync
// budget: a handful of manual posts per day never competes with the queue.
type PostScheduler struct {
	posts         models.ScheduledPostRepository
	publisher     Publisher
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
	now           func() time.Time
}

// NewPostScheduler creates a scheduler for draft publication.
func NewPostScheduler(
	posts models.ScheduledPostRepository,
	publisher Publisher,
	logger *slog.Logger,
) *PostScheduler {
	return &PostScheduler{
		posts:         posts,
		publisher:     publisher,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 1 * time.Minute, // Check every minute
		now:           time.Now,
	}
}

// Start begins the scheduler loop
func (s *PostScheduler) Start(ctx context.Context) {
	s.logger.Info("starting post scheduler", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.publishDue(ctx)

	for {
		select {
		case <-ticker.C:
			s.publishDue(ctx)
		case <-s.stopChan:
			s.logger.Info("post scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("post scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *PostScheduler) Stop() {
	close(s.stopChan)
}

// publishDue publishes every pending draft whose publish time has passed.
// Rate limiting stops the pass; other failures are recorded on the draft and
// the pass continues.
func (s *PostScheduler) publishDue(ctx context.Context) {
	now := s.now()
	due, err := s.posts.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("failed to list due posts", "error", err)
		return
	}

	for _, post := range due {
		urn, err := s.publisher.PublishPost(ctx, post.Text)
		if err != nil {
			if errors.Is(err, social.ErrRateLimited) {
				s.logger.Warn("rate limited while publishing, stopping this pass",
					"post_id", post.ID)
				return
			}

			s.logger.Error("failed to publish scheduled post",
				"post_id", post.ID, "error", err)
			if markErr := s.posts.MarkFailed(ctx, post.ID, err.Error(), s.now()); markErr != nil {
				s.logger.Error("failed to record publish failure",
					"post_id", post.ID, "error", markErr)
			}
			continue
		}

		if err := s.posts.MarkPublished(ctx, post.ID, urn, s.now()); err != nil {
			s.logger.Error("failed to record publication",
				"post_id", post.ID, "error", err)
			continue
		}

		s.logger.Info("scheduled post published", "post_id", post.ID, "post_urn", urn)
	}
}
