package syncer

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
)

const (
	// defaultRetryDelay is the flat back-off before a failed item becomes
	// retry-eligible again. Deliberately not exponential.
	defaultRetryDelay = time.Hour

	// defaultMaxAttempts caps retries so a permanently failing connection
	// (deleted profile, revoked visibility) stops consuming batch slots.
	defaultMaxAttempts = 5
)

// Queue maintains the priority-ordered backlog of connection sync work.
type Queue struct {
	repo        models.SyncQueueRepository
	summaries   models.EngagementSummaryRepository
	logger      *slog.Logger
	retryDelay  time.Duration
	maxAttempts int
}

// NewQueue creates a queue service over the backing repository.
func NewQueue(repo models.SyncQueueRepository, summaries models.EngagementSummaryRepository, logger *slog.Logger) *Queue {
	return &Queue{
		repo:        repo,
		summaries:   summaries,
		logger:      logger,
		retryDelay:  defaultRetryDelay,
		maxAttempts: defaultMaxAttempts,
	}
}

// Rebuild recomputes every connection's priority and upserts its queue item.
// Existing items keep their insertion order and attempt history, so rebuilds
// are idempotent: unchanged connection data yields unchanged items.
func (q *Queue) Rebuild(ctx context.Context, connections []*models.Connection, now time.Time) (int, error) {
	for _, conn := range connections {
		summary, err := q.summaries.GetByConnection(ctx, conn.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to load summary for %s: %w", conn.ID, err)
		}

		priority := ScorePriority(conn, summary, now)
		if err := q.repo.Upsert(ctx, conn.ID, priority, now); err != nil {
			return 0, fmt.Errorf("failed to upsert queue item for %s: %w", conn.ID, err)
		}
	}

	q.logger.Info("sync queue rebuilt", "connections", len(connections))
	return len(connections), nil
}

// ResetCompleted returns completed items to pending. Runs once when a fresh
// session starts; a resumed session keeps its finished work settled.
func (q *Queue) ResetCompleted(ctx context.Context, now time.Time) error {
	return q.repo.ResetCompleted(ctx, now)
}

// NextBatch returns up to n work-eligible items in stable priority order.
func (q *Queue) NextBatch(ctx context.Context, n int, now time.Time) ([]*models.SyncQueueItem, error) {
	return q.repo.NextBatch(ctx, n, now, q.maxAttempts)
}

// MarkProcessing claims an item for the current run.
func (q *Queue) MarkProcessing(ctx context.Context, item *models.SyncQueueItem, now time.Time) error {
	return q.repo.MarkProcessing(ctx, item.ID, now)
}

// MarkCompleted settles an item after a successful sync.
func (q *Queue) MarkCompleted(ctx context.Context, item *models.SyncQueueItem, now time.Time) error {
	return q.repo.MarkCompleted(ctx, item.ID, now)
}

// MarkFailed records a per-item failure and schedules the flat-delay retry
// from this failure's timestamp.
func (q *Queue) MarkFailed(ctx context.Context, item *models.SyncQueueItem, itemErr error, now time.Time) error {
	return q.repo.MarkFailed(ctx, item.ID, itemErr.Error(), now, now.Add(q.retryDelay))
}

// Release returns a claimed item to pending without counting an attempt,
// used when the drain stops before the item was actually synced.
func (q *Queue) Release(ctx context.Context, item *models.SyncQueueItem, now time.Time) error {
	return q.repo.MarkPending(ctx, item.ID, now)
}

// Stats reports item counts by status for the dashboard.
func (q *Queue) Stats(ctx context.Context) (*models.SyncQueueStats, error) {
	return q.repo.Stats(ctx)
}
