package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/linkpilot/linkpilot/internal/models"
)

type SQLiteConnectionRepository struct {
	db *sql.DB
}

func NewSQLiteConnectionRepository(db *sql.DB) *SQLiteConnectionRepository {
	return &SQLiteConnectionRepository{db: db}
}

func (r *SQLiteConnectionRepository) Store(ctx context.Context, conn *models.Connection) error {
	now := time.Now().UTC()
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	query := `
		INSERT INTO connections
		(id, first_name, last_name, profile_url, profile_urn, email,
		 company, position, relevant, connected_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_url)
		DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			profile_urn = excluded.profile_urn,
			email = excluded.email,
			company = excluded.company,
			position = excluded.position,
			connected_at = excluded.connected_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		conn.ID,
		conn.FirstName,
		conn.LastName,
		conn.ProfileURL,
		conn.ProfileURN,
		conn.Email,
		conn.Company,
		conn.Position,
		conn.Relevant,
		nullableTime(conn.ConnectedAt),
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	return err
}

func (r *SQLiteConnectionRepository) GetByID(ctx context.Context, id string) (*models.Connection, error) {
	query := selectConnection + " WHERE id = ?"

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *SQLiteConnectionRepository) ListAll(ctx context.Context) ([]*models.Connection, error) {
	query := selectConnection + " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}

func (r *SQLiteConnectionRepository) SetRelevant(ctx context.Context, id string, relevant bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE connections SET relevant = ?, updated_at = ? WHERE id = ?",
		relevant, time.Now().UTC(), id)
	return err
}

func (r *SQLiteConnectionRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM connections").Scan(&count)
	return count, err
}

const selectConnection = `
	SELECT id, first_name, last_name, profile_url, profile_urn, email,
	       company, position, relevant, connected_at, created_at, updated_at
	FROM connections`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*models.Connection, error) {
	var conn models.Connection
	var connectedAt sql.NullTime

	err := row.Scan(
		&conn.ID,
		&conn.FirstName,
		&conn.LastName,
		&conn.ProfileURL,
		&conn.ProfileURN,
		&conn.Email,
		&conn.Company,
		&conn.Position,
		&conn.Relevant,
		&connectedAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if connectedAt.Valid {
		t := connectedAt.Time
		conn.ConnectedAt = &t
	}
	return &conn, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
