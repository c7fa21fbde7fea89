package models

import (
	"context"
	"time"
)

// ScheduledPostStatus is the lifecycle state of a draft post.
type ScheduledPostStatus string

const (
	PostStatusPending   ScheduledPostStatus = "pending"
	PostStatusPublished ScheduledPostStatus = "published"
	PostStatusFailed    ScheduledPostStatus = "failed"
)

// ScheduledPost is a draft written in the dashboard for later publication.
type ScheduledPost struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	PublishAt   time.Time           `json:"publish_at"`
	Status      ScheduledPostStatus `json:"status"`
	PostURN     string              `json:"post_urn,omitempty"` // set once published
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	PublishedAt *time.Time          `json:"published_at,omitempty"`
}

// ScheduledPostRepository defines persistence for draft posts.
type ScheduledPostRepository interface {
	// Create persists a new draft.
	Create(ctx context.Context, post *ScheduledPost) error

	// GetByID returns a draft by ID, or nil when absent.
	GetByID(ctx context.Context, id string) (*ScheduledPost, error)

	// ListDue returns pending drafts whose publish time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*ScheduledPost, error)

	// List returns drafts newest first.
	List(ctx context.Context, limit int) ([]*ScheduledPost, error)

	// MarkPublished records a successful publication.
	MarkPublished(ctx context.Context, id, postURN string, at time.Time) error

	// MarkFailed records a failed publication attempt.
	MarkFailed(ctx context.Context, id, errMsg string, at time.Time) error

	// Delete removes a draft that has not been published.
	Delete(ctx context.Context, id string) error
}
