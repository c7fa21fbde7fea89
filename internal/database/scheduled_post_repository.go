package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteScheduledPostRepository struct {
	db *sql.DB
}

func NewSQLiteScheduledPostRepository(db *sql.DB) *SQLiteScheduledPostRepository {
	return &SQLiteScheduledPostRepository{db: db}
}

func (r *SQLiteScheduledPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	now := time.Now().UTC()
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.Status == "" {
		post.Status = models.PostStatusPending
	}
	post.CreatedAt = now
	post.UpdatedAt = now

	query := `
		INSERT INTO scheduled_posts
		(id, text, publish_at, status, post_urn, error, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.Text,
		post.PublishAt,
		post.Status,
		post.PostURN,
		post.Error,
		post.CreatedAt,
		post.UpdatedAt,
		nullableTime(post.PublishedAt),
	)
	return err
}

func (r *SQLiteScheduledPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := selectScheduledPost + " WHERE id = ?"

	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *SQLiteScheduledPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := selectScheduledPost + `
		WHERE status = ? AND publish_at <= ?
		ORDER BY publish_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledPosts(rows)
}

func (r *SQLiteScheduledPostRepository) List(ctx context.Context, limit int) ([]*models.ScheduledPost, error) {
	query := selectScheduledPost + " ORDER BY created_at DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledPosts(rows)
}

func (r *SQLiteScheduledPostRepository) MarkPublished(ctx context.Context, id, postURN string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_posts
		SET status = ?, post_urn = ?, error = '', published_at = ?, updated_at = ?
		WHERE id = ?`,
		models.PostStatusPublished, postURN, at, at, id)
	return err
}

func (r *SQLiteScheduledPostRepository) MarkFailed(ctx context.Context, id, errMsg string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE scheduled_posts SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		models.PostStatusFailed, errMsg, at, id)
	return err
}

func (r *SQLiteScheduledPostRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM scheduled_posts WHERE id = ? AND status != ?",
		id, models.PostStatusPublished)
	return err
}

const selectScheduledPost = `
	SELECT id, text, publish_at, status, post_urn, error, created_at, updated_at, published_at
	FROM scheduled_posts`

func collectScheduledPosts(rows *sql.Rows) ([]*models.ScheduledPost, error) {
	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanScheduledPost(row rowScanner) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var publishedAt sql.NullTime

	err := row.Scan(
		&post.ID,
		&post.Text,
		&post.PublishAt,
		&post.Status,
		&post.PostURN,
		&post.Error,
		&post.CreatedAt,
		&post.UpdatedAt,
		&publishedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	return &post, nil
}
