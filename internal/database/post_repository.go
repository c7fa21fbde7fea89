package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteTrackedPostRepository struct {
	db *sql.DB
}

func NewSQLiteTrackedPostRepository(db *sql.DB) *SQLiteTrackedPostRepository {
	return &SQLiteTrackedPostRepository{db: db}
}

func (r *SQLiteTrackedPostRepository) Store(ctx context.Context, post *models.TrackedPost) error {
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	query := `
		INSERT INTO tracked_posts
		(id, text_preview, posted_at, sync_priority, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET
			text_preview = excluded.text_preview,
			posted_at = excluded.posted_at,
			sync_priority = excluded.sync_priority,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.TextPreview,
		post.PostedAt,
		post.SyncPriority,
		nullableTime(post.LastSyncedAt),
		post.CreatedAt,
		post.UpdatedAt,
	)
	return err
}

func (r *SQLiteTrackedPostRepository) ListTop(ctx context.Context, n int) ([]*models.TrackedPost, error) {
	query := `
		SELECT id, text_preview, posted_at, sync_priority, last_synced_at, created_at, updated_at
		FROM tracked_posts
		ORDER BY sync_priority DESC, posted_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.TrackedPost
	for rows.Next() {
		var post models.TrackedPost
		var lastSyncedAt sql.NullTime

		err := rows.Scan(
			&post.ID,
			&post.TextPreview,
			&post.PostedAt,
			&post.SyncPriority,
			&lastSyncedAt,
			&post.CreatedAt,
			&post.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if lastSyncedAt.Valid {
			t := lastSyncedAt.Time
			post.LastSyncedAt = &t
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func (r *SQLiteTrackedPostRepository) TouchSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tracked_posts SET last_synced_at = ?, updated_at = ? WHERE id = ?",
		at, at, id)
	return err
}
