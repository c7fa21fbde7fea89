package models

import (
	"context"
	"time"
)

// SyncQueueItemStatus is the lifecycle state of one connection's sync work.
type SyncQueueItemStatus string

const (
	QueueStatusPending    SyncQueueItemStatus = "pending"
	QueueStatusProcessing SyncQueueItemStatus = "processing"
	QueueStatusCompleted  SyncQueueItemStatus = "completed"
	QueueStatusFailed     SyncQueueItemStatus = "failed"
)

// SyncQueueItem is one connection's pending or settled unit of sync work.
// Items are never hard-deleted; the row keeps attempt history across runs.
type SyncQueueItem struct {
	ID            int64               `json:"id"`
	ConnectionID  string              `json:"connection_id"`
	Priority      int                 `json:"priority"`
	Status        SyncQueueItemStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
	NextRetryAt   *time.Time          `json:"next_retry_at,omitempty"`
	Error         string              `json:"error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// SyncQueueStats summarizes queue composition for the dashboard.
type SyncQueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// SyncQueueRepository defines persistence for the sync backlog.
type SyncQueueRepository interface {
	// Upsert inserts a queue item for the connection or, when one exists,
	// resets it to pending with the new priority. Items that are
	// processing or already completed are left alone so a mid-session
	// rebuild never re-queues finished work. Attempt history is preserved
	// across upserts.
	Upsert(ctx context.Context, connectionID string, priority int, now time.Time) error

	// ResetCompleted returns completed items to pending. Called when a
	// fresh session starts so each day walks the whole network again.
	ResetCompleted(ctx context.Context, now time.Time) error

	// NextBatch returns up to n items eligible for work at the given time:
	// pending items plus failed items whose retry delay has elapsed and
	// whose attempt count is below maxAttempts. Ordered by priority
	// descending, then insertion order ascending.
	NextBatch(ctx context.Context, n int, now time.Time, maxAttempts int) ([]*SyncQueueItem, error)

	// MarkProcessing transitions an item to processing.
	MarkProcessing(ctx context.Context, id int64, now time.Time) error

	// MarkCompleted transitions an item to completed.
	MarkCompleted(ctx context.Context, id int64, now time.Time) error

	// MarkFailed transitions an item to failed, increments its attempt
	// count and schedules the next retry.
	MarkFailed(ctx context.Context, id int64, errMsg string, now, nextRetry time.Time) error

	// MarkPending returns an item to pending, used when a drain stops
	// before the item was attempted.
	MarkPending(ctx context.Context, id int64, now time.Time) error

	// GetByConnection returns the queue item for a connection, or nil.
	GetByConnection(ctx context.Context, connectionID string) (*SyncQueueItem, error)

	// Stats returns item counts by status.
	Stats(ctx context.Context) (*SyncQueueStats, error)
}
