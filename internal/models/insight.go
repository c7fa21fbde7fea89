package models

import (
	"context"
	"time"
)

// InsightType identifies one of the fixed network reports.
type InsightType string

const (
	InsightTopEngagers InsightType = "top_engagers"
	InsightRisingStars InsightType = "rising_stars"
	InsightAtRisk      InsightType = "at_risk"
)

// InsightEntry is one ranked row inside an insight payload. All three report
// types share this shape; Score carries the type-specific ranking criterion.
type InsightEntry struct {
	Rank         int     `json:"rank"`
	ConnectionID string  `json:"connection_id"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Detail       string  `json:"detail,omitempty"`
}

// NetworkInsight is a dated, typed ranked list derived from engagement
// summaries. Write-once per (user, date, type) per day; re-running the
// calculator on the same day overwrites rather than appends.
type NetworkInsight struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Date      string         `json:"date"` // YYYY-MM-DD
	Type      InsightType    `json:"type"`
	Entries   []InsightEntry `json:"entries"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NetworkInsightRepository defines persistence for insight snapshots.
type NetworkInsightRepository interface {
	// Upsert writes an insight, replacing any existing row with the same
	// (user, date, type) key.
	Upsert(ctx context.Context, insight *NetworkInsight) error

	// GetByKey returns the insight for a key, or nil when absent.
	GetByKey(ctx context.Context, userID, date string, typ InsightType) (*NetworkInsight, error)

	// ListByDate returns all insights for a user on a date.
	ListByDate(ctx context.Context, userID, date string) ([]*NetworkInsight, error)
}
