package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteSyncSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSyncSessionRepository(db *sql.DB) *SQLiteSyncSessionRepository {
	return &SQLiteSyncSessionRepository{db: db}
}

func (r *SQLiteSyncSessionRepository) Create(ctx context.Context, session *models.SyncSession) error {
	query := `
		INSERT INTO sync_sessions
		(id, session_date, status, total_connections, connections_synced,
		 api_calls_used, api_call_limit, last_connection_id, error,
		 started_at, paused_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Date,
		session.Status,
		session.TotalConnections,
		session.ConnectionsSynced,
		session.APICallsUsed,
		session.APICallLimit,
		session.LastConnectionID,
		session.Error,
		session.StartedAt,
		nullableTime(session.PausedAt),
		nullableTime(session.CompletedAt),
	)
	return err
}

func (r *SQLiteSyncSessionRepository) GetByDate(ctx context.Context, date string) (*models.SyncSession, error) {
	query := selectSession + " WHERE session_date = ?"

	session, err := scanSession(r.db.QueryRowContext(ctx, query, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SQLiteSyncSessionRepository) LatestUnfinished(ctx context.Context) (*models.SyncSession, error) {
	query := selectSession + `
		WHERE status IN (?, ?)
		ORDER BY session_date DESC
		LIMIT 1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query,
		models.SyncStatusRunning, models.SyncStatusPaused))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Update persists only the fields set on the partial update, so concurrent
// progress counters never clobber fields the caller did not touch.
func (r *SQLiteSyncSessionRepository) Update(ctx context.Context, id string, update models.SyncSessionUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.TotalConnections != nil {
		sets = append(sets, "total_connections = ?")
		args = append(args, *update.TotalConnections)
	}
	if update.ConnectionsSynced != nil {
		sets = append(sets, "connections_synced = ?")
		args = append(args, *update.ConnectionsSynced)
	}
	if update.APICallsUsed != nil {
		sets = append(sets, "api_calls_used = ?")
		args = append(args, *update.APICallsUsed)
	}
	if update.APICallLimit != nil {
		sets = append(sets, "api_call_limit = ?")
		args = append(args, *update.APICallLimit)
	}
	if update.LastConnectionID != nil {
		sets = append(sets, "last_connection_id = ?")
		args = append(args, *update.LastConnectionID)
	}
	if update.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *update.Error)
	}
	if update.PausedAt != nil {
		sets = append(sets, "paused_at = ?")
		args = append(args, *update.PausedAt)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE sync_sessions SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLiteSyncSessionRepository) List(ctx context.Context, limit int) ([]*models.SyncSession, error) {
	query := selectSession + " ORDER BY session_date DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.SyncSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

const selectSession = `
	SELECT id, session_date, status, total_connections, connections_synced,
	       api_calls_used, api_call_limit, last_connection_id, error,
	       started_at, paused_at, completed_at
	FROM sync_sessions`

func scanSession(row rowScanner) (*models.SyncSession, error) {
	var session models.SyncSession
	var pausedAt, completedAt sql.NullTime

	err := row.Scan(
		&session.ID,
		&session.Date,
		&session.Status,
		&session.TotalConnections,
		&session.ConnectionsSynced,
		&session.APICallsUsed,
		&session.APICallLimit,
		&session.LastConnectionID,
		&session.Error,
		&session.StartedAt,
		&pausedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if pausedAt.Valid {
		t := pausedAt.Time
		session.PausedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}
	return &session, nil
}
