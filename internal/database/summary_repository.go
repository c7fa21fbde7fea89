package database

import (
	"context"
	"database/sql"

	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteEngagementSummaryRepository struct {
	db *sql.DB
}

func NewSQLiteEngagementSummaryRepository(db *sql.DB) *SQLiteEngagementSummaryRepository {
	return &SQLiteEngagementSummaryRepository{db: db}
}

// Upsert overwrites the whole summary row. Summaries are recomputed from the
// event log rather than patched, so a full overwrite is always correct.
func (r *SQLiteEngagementSummaryRepository) Upsert(ctx context.Context, summary *models.EngagementSummary) error {
	query := `
		INSERT INTO engagement_summaries
		(connection_id, total_engagements, likes, comments, shares,
		 last_7_days, last_30_days, last_engaged_at, status, priority_score, recalculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (connection_id)
		DO UPDATE SET
			total_engagements = excluded.total_engagements,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			last_7_days = excluded.last_7_days,
			last_30_days = excluded.last_30_days,
			last_engaged_at = excluded.last_engaged_at,
			status = excluded.status,
			priority_score = excluded.priority_score,
			recalculated_at = excluded.recalculated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		summary.ConnectionID,
		summary.TotalEngagements,
		summary.Likes,
		summary.Comments,
		summary.Shares,
		summary.Last7Days,
		summary.Last30Days,
		nullableTime(summary.LastEngagedAt),
		summary.Status,
		summary.PriorityScore,
		summary.RecalculatedAt,
	)
	return err
}

func (r *SQLiteEngagementSummaryRepository) GetByConnection(ctx context.Context, connectionID string) (*models.EngagementSummary, error) {
	query := selectSummary + " WHERE connection_id = ?"

	summary, err := scanSummary(r.db.QueryRowContext(ctx, query, connectionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *SQLiteEngagementSummaryRepository) ListAll(ctx context.Context) ([]*models.EngagementSummary, error) {
	query := selectSummary + " ORDER BY connection_id ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.EngagementSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

const selectSummary = `
	SELECT connection_id, total_engagements, likes, comments, shares,
	       last_7_days, last_30_days, last_engaged_at, status, priority_score, recalculated_at
	FROM engagement_summaries`

func scanSummary(row rowScanner) (*models.EngagementSummary, error) {
	var summary models.EngagementSummary
	var lastEngagedAt sql.NullTime

	err := row.Scan(
		&summary.ConnectionID,
		&summary.TotalEngagements,
		&summary.Likes,
		&summary.Comments,
		&summary.Shares,
		&summary.Last7Days,
		&summary.Last30Days,
		&lastEngagedAt,
		&summary.Status,
		&summary.PriorityScore,
		&summary.RecalculatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastEngagedAt.Valid {
		t := lastEngagedAt.Time
		summary.LastEngagedAt = &t
	}
	return &summary, nil
}
