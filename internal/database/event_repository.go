package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteEngagementEventRepository struct {
	db *sql.DB
}

func NewSQLiteEngagementEventRepository(db *sql.DB) *SQLiteEngagementEventRepository {
	return &SQLiteEngagementEventRepository{db: db}
}

// Append stores an engagement fact. The unique key on
// (connection, post, type, occurred_at) makes re-syncing a post idempotent:
// an already-recorded event is silently ignored.
func (r *SQLiteEngagementEventRepository) Append(ctx context.Context, event *models.EngagementEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	detailJSON, err := json.Marshal(event.Detail)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO engagement_events
		(id, connection_id, post_id, event_type, actor_urn, detail, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (connection_id, post_id, event_type, occurred_at) DO NOTHING
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.ConnectionID,
		event.PostID,
		event.Type,
		event.ActorURN,
		string(detailJSON),
		event.OccurredAt,
		event.CreatedAt,
	)
	return err
}

func (r *SQLiteEngagementEventRepository) ListByConnection(ctx context.Context, connectionID string) ([]*models.EngagementEvent, error) {
	query := `
		SELECT id, connection_id, post_id, event_type, actor_urn, detail, occurred_at, created_at
		FROM engagement_events
		WHERE connection_id = ?
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.EngagementEvent
	for rows.Next() {
		var event models.EngagementEvent
		var detailJSON string

		err := rows.Scan(
			&event.ID,
			&event.ConnectionID,
			&event.PostID,
			&event.Type,
			&event.ActorURN,
			&detailJSON,
			&event.OccurredAt,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if detailJSON != "" {
			if err := json.Unmarshal([]byte(detailJSON), &event.Detail); err != nil {
				return nil, err
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (r *SQLiteEngagementEventRepository) CountByConnection(ctx context.Context, connectionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM engagement_events WHERE connection_id = ?",
		connectionID).Scan(&count)
	return count, err
}
