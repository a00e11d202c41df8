package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertResult caches a serialized standings payload against its live-timing
// path. The unique path constraint makes this idempotent: a second insert for
// the same path is silently ignored, which is what keeps repeated polling
// cycles from re-delivering a session.
func InsertResult(ctx context.Context, db *sql.DB, eventID int64, path string, data []byte) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO results (event_id, path, data) VALUES ($1, $2, $3) ON CONFLICT (path) DO NOTHING`,
		eventID, path, data)
	if err != nil {
		return fmt.Errorf("insert result for %s: %w", path, err)
	}
	return nil
}

// ResultDelivered reports whether a result row exists for the path. Row
// existence is the sole delivered signal; there is no separate flag.
func ResultDelivered(ctx context.Context, db *sql.DB, path string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM results WHERE path = $1`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check result delivered: %w", err)
	}
	return true, nil
}

// LatestResultPath returns the most recently cached path, or "" when the
// results table is empty.
func LatestResultPath(ctx context.Context, db *sql.DB) (string, error) {
	var path string
	err := db.QueryRowContext(ctx,
		`SELECT path FROM results ORDER BY created_at DESC LIMIT 1`).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest result path: %w", err)
	}
	return path, nil
}

// CachedResult loads the cached payload for a path together with the stored
// event's meeting name and canonical session-type name. The bool reports
// whether a cached row exists.
func CachedResult(ctx context.Context, db *sql.DB, path string) (meetingName, typeName string, data []byte, ok bool, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT e.meeting_name, et.name, r.data
		FROM results r
		JOIN events e ON r.event_id = e.id
		JOIN event_type et ON e.event_type_id = et.id
		WHERE r.path = $1
		LIMIT 1`, path).Scan(&meetingName, &typeName, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil, false, nil
	}
	if err != nil {
		return "", "", nil, false, fmt.Errorf("query cached result: %w", err)
	}
	return meetingName, typeName, data, true, nil
}
