package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteSyncQueueRepository struct {
	db *sql.DB
}

func NewSQLiteSyncQueueRepository(db *sql.DB) *SQLiteSyncQueueRepository {
	return &SQLiteSyncQueueRepository{db: db}
}

// Upsert inserts a queue item for the connection, or resets an existing one
// to pending with the fresh priority. Items currently processing or already
// completed are left alone, so a rebuild on a resumed session never re-queues
// finished work; attempt history survives the upsert so retry back-off stays
// intact.
func (r *SQLiteSyncQueueRepository) Upsert(ctx context.Context, connectionID string, priority int, now time.Time) error {
	query := `
		INSERT INTO sync_queue
		(connection_id, priority, status, attempts, error, created_at, updated_at)
		VALUES (?, ?, ?, 0, '', ?, ?)
		ON CONFLICT (connection_id)
		DO UPDATE SET
			priority = excluded.priority,
			status = excluded.status,
			updated_at = excluded.updated_at
		WHERE sync_queue.status NOT IN (?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		connectionID, priority, models.QueueStatusPending, now, now,
		models.QueueStatusProcessing, models.QueueStatusCompleted)
	return err
}

// ResetCompleted returns completed items to pending for a fresh day's pass.
func (r *SQLiteSyncQueueRepository) ResetCompleted(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?",
		models.QueueStatusPending, now, models.QueueStatusCompleted)
	return err
}

// NextBatch returns up to n eligible items: pending items plus failed items
// whose retry delay elapsed and whose attempts stay under maxAttempts.
// Ordering is priority descending with insertion order (autoincrement id) as
// the stable tie-break, so repeated calls over unchanged state return the
// same sequence.
func (r *SQLiteSyncQueueRepository) NextBatch(ctx context.Context, n int, now time.Time, maxAttempts int) ([]*models.SyncQueueItem, error) {
	query := selectQueueItem + `
		WHERE status = ?
		   OR (status = ? AND attempts < ? AND (next_retry_at IS NULL OR next_retry_at <= ?))
		ORDER BY priority DESC, id ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query,
		models.QueueStatusPending,
		models.QueueStatusFailed, maxAttempts, now,
		n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteSyncQueueRepository) MarkProcessing(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_queue SET status = ?, last_attempt_at = ?, updated_at = ? WHERE id = ?",
		models.QueueStatusProcessing, now, now, id)
	return err
}

func (r *SQLiteSyncQueueRepository) MarkCompleted(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_queue SET status = ?, error = '', updated_at = ? WHERE id = ?",
		models.QueueStatusCompleted, now, id)
	return err
}

// MarkFailed increments the attempt count and schedules the retry from this
// failure's timestamp, not the first one's.
func (r *SQLiteSyncQueueRepository) MarkFailed(ctx context.Context, id int64, errMsg string, now, nextRetry time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, attempts = attempts + 1, error = ?,
		    last_attempt_at = ?, next_retry_at = ?, updated_at = ?
		WHERE id = ?`,
		models.QueueStatusFailed, errMsg, now, nextRetry, now, id)
	return err
}

func (r *SQLiteSyncQueueRepository) MarkPending(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ?",
		models.QueueStatusPending, now, id)
	return err
}

func (r *SQLiteSyncQueueRepository) GetByConnection(ctx context.Context, connectionID string) (*models.SyncQueueItem, error) {
	query := selectQueueItem + " WHERE connection_id = ?"

	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, connectionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *SQLiteSyncQueueRepository) Stats(ctx context.Context) (*models.SyncQueueStats, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM sync_queue GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.SyncQueueStats{}
	for rows.Next() {
		var status models.SyncQueueItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case models.QueueStatusPending:
			stats.Pending = count
		case models.QueueStatusProcessing:
			stats.Processing = count
		case models.QueueStatusCompleted:
			stats.Completed = count
		case models.QueueStatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

const selectQueueItem = `
	SELECT id, connection_id, priority, status, attempts,
	       last_attempt_at, next_retry_at, error, created_at, updated_at
	FROM sync_queue`

func scanQueueItem(row rowScanner) (*models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	var lastAttemptAt, nextRetryAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.ConnectionID,
		&item.Priority,
		&item.Status,
		&item.Attempts,
		&lastAttemptAt,
		&nextRetryAt,
		&item.Error,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		item.LastAttemptAt = &t
	}
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		item.NextRetryAt = &t
	}
	return &item, nil
}
