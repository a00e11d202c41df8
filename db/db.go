// Package db provides the Postgres connection, idempotent schema migration,
// and the small data access helpers the bot is built on: slug-keyed event
// upserts, path-keyed result caching, driver reference data, championship
// standings snapshots, and broadcast channel registration.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/obviyus/hamverbot/event"
)

// Connect opens a Postgres connection for the given DSN. The DSN is required
// configuration; config.Load fails before this is ever called with an empty
// string.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database DSN")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and
// indices, then seeds the event_type lookup table.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS event_type (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			meeting_name TEXT NOT NULL,
			event_type_id INTEGER NOT NULL REFERENCES event_type(id),
			start_time BIGINT NOT NULL,
			event_slug TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			path TEXT NOT NULL UNIQUE,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS driver_list (
			racing_number INTEGER PRIMARY KEY,
			reference TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			broadcast_name TEXT NOT NULL DEFAULT '',
			tla TEXT NOT NULL DEFAULT '',
			team_name TEXT NOT NULL DEFAULT '',
			team_color TEXT NOT NULL DEFAULT '#FFFFFF'
		)`,
		`CREATE TABLE IF NOT EXISTS championship_standings (
			id SERIAL PRIMARY KEY,
			kind INTEGER NOT NULL UNIQUE,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_events_meeting_type ON events(meeting_name, event_type_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return seedEventTypes(ctx, db)
}

func seedEventTypes(ctx context.Context, db *sql.DB) error {
	for _, t := range event.All() {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO event_type (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			int(t), t.Name()); err != nil {
			return fmt.Errorf("seed event_type %d: %w", int(t), err)
		}
	}
	return nil
}
