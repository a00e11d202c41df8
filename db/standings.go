package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Standings discriminators: at most one cached row per kind.
const (
	StandingsDrivers      = 0
	StandingsConstructors = 1
)

// UpsertStandings overwrites the cached championship standings snapshot for
// the given discriminator.
func UpsertStandings(ctx context.Context, db *sql.DB, kind int, data []byte) error {
	_, err := db.ExecContext(ctx, `INSERT INTO championship_standings (kind, data)
		VALUES ($1, $2)
		ON CONFLICT (kind) DO UPDATE SET data = EXCLUDED.data, created_at = NOW()`,
		kind, data)
	if err != nil {
		return fmt.Errorf("upsert standings kind %d: %w", kind, err)
	}
	return nil
}

// Standings returns the cached snapshot for the discriminator; ok is false
// when no snapshot exists yet.
func Standings(ctx context.Context, db *sql.DB, kind int) (data []byte, ok bool, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT data FROM championship_standings WHERE kind = $1 LIMIT 1`, kind).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query standings kind %d: %w", kind, err)
	}
	return data, true, nil
}
