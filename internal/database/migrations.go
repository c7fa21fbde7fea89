package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one versioned schema change. Versions run in order and each
// applied version is recorded in schema_migrations.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
CREATE TABLE IF NOT EXISTS connections (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	profile_url TEXT NOT NULL,
	profile_urn TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	relevant INTEGER NOT NULL DEFAULT 0,
	connected_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (profile_url)
);

CREATE TABLE IF NOT EXISTS tracked_posts (
	id TEXT PRIMARY KEY,
	text_preview TEXT NOT NULL DEFAULT '',
	posted_at TIMESTAMP NOT NULL,
	sync_priority INTEGER NOT NULL DEFAULT 0,
	last_synced_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS scheduled_posts (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	publish_at TIMESTAMP NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	post_urn TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	published_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS engagement_events (
	id TEXT PRIMARY KEY,
	connection_id TEXT NOT NULL REFERENCES connections(id),
	post_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	actor_urn TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '{}',
	occurred_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (connection_id, post_id, event_type, occurred_at)
);

CREATE INDEX IF NOT EXISTS idx_engagement_events_connection
	ON engagement_events(connection_id, occurred_at);

CREATE TABLE IF NOT EXISTS engagement_summaries (
	connection_id TEXT PRIMARY KEY REFERENCES connections(id),
	total_engagements INTEGER NOT NULL DEFAULT 0,
	likes INTEGER NOT NULL DEFAULT 0,
	comments INTEGER NOT NULL DEFAULT 0,
	shares INTEGER NOT NULL DEFAULT 0,
	last_7_days INTEGER NOT NULL DEFAULT 0,
	last_30_days INTEGER NOT NULL DEFAULT 0,
	last_engaged_at TIMESTAMP,
	status TEXT NOT NULL DEFAULT 'unknown',
	priority_score INTEGER NOT NULL DEFAULT 0,
	recalculated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_sessions (
	id TEXT PRIMARY KEY,
	session_date TEXT NOT NULL,
	status TEXT NOT NULL,
	total_connections INTEGER NOT NULL DEFAULT 0,
	connections_synced INTEGER NOT NULL DEFAULT 0,
	api_calls_used INTEGER NOT NULL DEFAULT 0,
	api_call_limit INTEGER NOT NULL,
	last_connection_id TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	paused_at TIMESTAMP,
	completed_at TIMESTAMP,
	UNIQUE (session_date)
);

CREATE TABLE IF NOT EXISTS sync_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	connection_id TEXT NOT NULL REFERENCES connections(id),
	priority INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INTEGER NOT NULL DEFAULT 0,
	last_attempt_at TIMESTAMP,
	next_retry_at TIMESTAMP,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (connection_id)
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_drain
	ON sync_queue(status, priority DESC, id ASC);

CREATE TABLE IF NOT EXISTS network_insights (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	insight_date TEXT NOT NULL,
	insight_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (user_id, insight_date, insight_type)
);
`,
	},
}

// RunMigrations applies all pending schema migrations in version order.
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	logger.Info("checking for pending database migrations")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	pendingCount := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		logger.Info("applying migration", "version", m.version, "name", m.name)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		pendingCount++
	}

	if pendingCount > 0 {
		logger.Info("migrations applied", "count", pendingCount)
	} else {
		logger.Info("database schema up to date")
	}

	return nil
}
