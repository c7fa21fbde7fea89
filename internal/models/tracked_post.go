package models

import (
	"context"
	"time"
)

// TrackedPost is a cached entry for one of the user's own posts. SyncPriority
// weights recent posts higher so the bounded per-connection engagement check
// samples the posts most likely to have new activity.
type TrackedPost struct {
	ID           string     `json:"id"` // LinkedIn share URN
	TextPreview  string     `json:"text_preview,omitempty"`
	PostedAt     time.Time  `json:"posted_at"`
	SyncPriority int        `json:"sync_priority"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TrackedPostRepository defines persistence for the user's post cache.
type TrackedPostRepository interface {
	// Store creates or updates a tracked post, keyed by post URN.
	Store(ctx context.Context, post *TrackedPost) error

	// ListTop returns up to n posts ordered by sync priority descending,
	// then by posted-at descending.
	ListTop(ctx context.Context, n int) ([]*TrackedPost, error)

	// TouchSynced records that a post's engagement was just fetched.
	TouchSynced(ctx context.Context, id string, at time.Time) error
}
