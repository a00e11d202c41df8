package db

import (
	"context"
	"database/sql"
	"fmt"
)

// AddChannel registers a broadcast channel. Already-known names are ignored.
func AddChannel(ctx context.Context, db *sql.DB, name string) error {
	if name == "" {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO channels (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("add channel %s: %w", name, err)
	}
	return nil
}

// AllChannels returns every registered broadcast channel.
func AllChannels(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, name)
	}
	return channels, rows.Err()
}
