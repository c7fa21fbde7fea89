package models

import (
	"context"
	"time"
)

// SyncSessionStatus is the lifecycle state of a daily sync session.
type SyncSessionStatus string

const (
	SyncStatusRunning   SyncSessionStatus = "running"
	SyncStatusPaused    SyncSessionStatus = "paused"
	SyncStatusCompleted SyncSessionStatus = "completed"
	SyncStatusFailed    SyncSessionStatus = "failed"
)

// SessionDateFormat is the calendar-date key format for sync sessions.
const SessionDateFormat = "2006-01-02"

// SyncSession records the progress of one day's engagement sync. At most one
// session exists per calendar date (unique index on date); a paused session
// carries enough state to resume after a process restart.
type SyncSession struct {
	ID                string            `json:"id"`
	Date              string            `json:"date"` // YYYY-MM-DD, creation date
	Status            SyncSessionStatus `json:"status"`
	TotalConnections  int               `json:"total_connections"`
	ConnectionsSynced int               `json:"connections_synced"`
	APICallsUsed      int               `json:"api_calls_used"`
	APICallLimit      int               `json:"api_call_limit"`
	LastConnectionID  string            `json:"last_connection_id,omitempty"`
	Error             string            `json:"error,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	PausedAt          *time.Time        `json:"paused_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// Unfinished reports whether the session still has work to resume.
func (s *SyncSession) Unfinished() bool {
	return s.Status == SyncStatusRunning || s.Status == SyncStatusPaused
}

// SyncSessionUpdate carries the fields of a partial session update. Nil
// fields are left untouched so callers persist only what changed.
type SyncSessionUpdate struct {
	Status            *SyncSessionStatus
	TotalConnections  *int
	ConnectionsSynced *int
	APICallsUsed      *int
	APICallLimit      *int
	LastConnectionID  *string
	Error             *string
	PausedAt          *time.Time
	CompletedAt       *time.Time
}

// SyncSessionRepository defines persistence for daily sync sessions.
type SyncSessionRepository interface {
	// Create persists a new session. Fails if one already exists for the
	// session's date.
	Create(ctx context.Context, session *SyncSession) error

	// GetByDate returns the session for a calendar date, or nil when absent.
	GetByDate(ctx context.Context, date string) (*SyncSession, error)

	// LatestUnfinished returns the most recent running or paused session,
	// or nil when every session is settled.
	LatestUnfinished(ctx context.Context) (*SyncSession, error)

	// Update applies a partial update to a session.
	Update(ctx context.Context, id string, update SyncSessionUpdate) error

	// List returns sessions in reverse date order, newest first.
	List(ctx context.Context, limit int) ([]*SyncSession, error)
}
