package models

import (
	"context"
	"time"
)

// EngagementType classifies a single engagement action.
type EngagementType string

const (
	EngagementLike    EngagementType = "like"
	EngagementComment EngagementType = "comment"
	EngagementShare   EngagementType = "share"
)

// EngagementDetail is the typed payload stored alongside an engagement
// event. The shape is fixed per event type: likes carry only the reaction,
// comments carry the comment text.
type EngagementDetail struct {
	Reaction    string `json:"reaction,omitempty"`
	CommentText string `json:"comment_text,omitempty"`
}

// EngagementEvent is an immutable fact: a connection performed one action on
// one tracked post at one point in time. Append-only; summaries are derived
// from these rows and never the other way around.
type EngagementEvent struct {
	ID           string           `json:"id"`
	ConnectionID string           `json:"connection_id"`
	PostID       string           `json:"post_id"`
	Type         EngagementType   `json:"type"`
	ActorURN     string           `json:"actor_urn,omitempty"`
	Detail       EngagementDetail `json:"detail"`
	OccurredAt   time.Time        `json:"occurred_at"`
	CreatedAt    time.Time        `json:"created_at"`
}

// EngagementStatus is the coarse classification of a connection's recency.
type EngagementStatus string

const (
	EngagementStatusActive  EngagementStatus = "active"  // engaged within 7 days
	EngagementStatusQuiet   EngagementStatus = "quiet"   // engaged within 30 days
	EngagementStatusCold    EngagementStatus = "cold"    // older engagement only
	EngagementStatusUnknown EngagementStatus = "unknown" // no data
)

// EngagementSummary is a derived rollup of one connection's engagement
// history. It is a materialized view over EngagementEvent rows: always safe
// to recompute from scratch, never patched incrementally.
type EngagementSummary struct {
	ConnectionID     string           `json:"connection_id"`
	TotalEngagements int              `json:"total_engagements"`
	Likes            int              `json:"likes"`
	Comments         int              `json:"comments"`
	Shares           int              `json:"shares"`
	Last7Days        int              `json:"last_7_days"`
	Last30Days       int              `json:"last_30_days"`
	LastEngagedAt    *time.Time       `json:"last_engaged_at,omitempty"`
	Status           EngagementStatus `json:"status"`
	PriorityScore    int              `json:"priority_score"`
	RecalculatedAt   time.Time        `json:"recalculated_at"`
}

// EngagementEventRepository defines append/read access to engagement facts.
type EngagementEventRepository interface {
	// Append stores an event. Re-appending an event with the same
	// (connection, post, type, occurred-at) key is a no-op so repeated
	// syncs of the same post stay idempotent.
	Append(ctx context.Context, event *EngagementEvent) error

	// ListByConnection returns all events for a connection, oldest first.
	ListByConnection(ctx context.Context, connectionID string) ([]*EngagementEvent, error)

	// CountByConnection returns the number of events for a connection.
	CountByConnection(ctx context.Context, connectionID string) (int, error)
}

// EngagementSummaryRepository defines persistence for derived summaries.
type EngagementSummaryRepository interface {
	// Upsert overwrites the summary for a connection.
	Upsert(ctx context.Context, summary *EngagementSummary) error

	// GetByConnection returns a connection's summary, or nil when the
	// connection has never been summarized.
	GetByConnection(ctx context.Context, connectionID string) (*EngagementSummary, error)

	// ListAll returns every summary.
	ListAll(ctx context.Context) ([]*EngagementSummary, error)
}
