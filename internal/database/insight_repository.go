package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteNetworkInsightRepository struct {
	db *sql.DB
}

func NewSQLiteNetworkInsightRepository(db *sql.DB) *SQLiteNetworkInsightRepository {
	return &SQLiteNetworkInsightRepository{db: db}
}

// Upsert writes an insight snapshot. Re-running the calculator on the same
// day replaces that day's row for the type, so repeated manual triggers stay
// idempotent per day.
func (r *SQLiteNetworkInsightRepository) Upsert(ctx context.Context, insight *models.NetworkInsight) error {
	now := time.Now().UTC()
	if insight.ID == "" {
		insight.ID = uuid.New().String()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = now
	}
	insight.UpdatedAt = now

	payloadJSON, err := json.Marshal(insight.Entries)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO network_insights
		(id, user_id, insight_date, insight_type, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, insight_date, insight_type)
		DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		insight.ID,
		insight.UserID,
		insight.Date,
		insight.Type,
		string(payloadJSON),
		insight.CreatedAt,
		insight.UpdatedAt,
	)
	return err
}

func (r *SQLiteNetworkInsightRepository) GetByKey(ctx context.Context, userID, date string, typ models.InsightType) (*models.NetworkInsight, error) {
	query := selectInsight + " WHERE user_id = ? AND insight_date = ? AND insight_type = ?"

	insight, err := scanInsight(r.db.QueryRowContext(ctx, query, userID, date, typ))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return insight, nil
}

func (r *SQLiteNetworkInsightRepository) ListByDate(ctx context.Context, userID, date string) ([]*models.NetworkInsight, error) {
	query := selectInsight + " WHERE user_id = ? AND insight_date = ? ORDER BY insight_type ASC"

	rows, err := r.db.QueryContext(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insights []*models.NetworkInsight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	return insights, rows.Err()
}

const selectInsight = `
	SELECT id, user_id, insight_date, insight_type, payload, created_at, updated_at
	FROM network_insights`

func scanInsight(row rowScanner) (*models.NetworkInsight, error) {
	var insight models.NetworkInsight
	var payloadJSON string

	err := row.Scan(
		&insight.ID,
		&insight.UserID,
		&insight.Date,
		&insight.Type,
		&payloadJSON,
		&insight.CreatedAt,
		&insight.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if payloadJSON != "" {
		if err := json.Unmarshal([]byte(payloadJSON), &insight.Entries); err != nil {
			return nil, err
		}
	}
	return &insight, nil
}
