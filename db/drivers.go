package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Driver is reference data for one entrant, keyed by racing number. Rows are
// fully overwritten on each refresh; no history is kept.
type Driver struct {
	RacingNumber  int
	Reference     string
	FirstName     string
	LastName      string
	FullName      string
	BroadcastName string
	Tla           string
	TeamName      string
	TeamColor     string
}

// UpsertDrivers overwrites the driver reference table with the given entries
// in one transaction.
func UpsertDrivers(ctx context.Context, db *sql.DB, drivers []Driver) error {
	if len(drivers) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert drivers: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO driver_list
		(racing_number, reference, first_name, last_name, full_name, broadcast_name, tla, team_name, team_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (racing_number) DO UPDATE SET
			reference = EXCLUDED.reference,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			full_name = EXCLUDED.full_name,
			broadcast_name = EXCLUDED.broadcast_name,
			tla = EXCLUDED.tla,
			team_name = EXCLUDED.team_name,
			team_color = EXCLUDED.team_color`)
	if err != nil {
		return fmt.Errorf("prepare upsert drivers: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range drivers {
		if _, err := stmt.ExecContext(ctx, d.RacingNumber, d.Reference, d.FirstName, d.LastName,
			d.FullName, d.BroadcastName, d.Tla, d.TeamName, d.TeamColor); err != nil {
			return fmt.Errorf("upsert driver %d: %w", d.RacingNumber, err)
		}
	}
	return tx.Commit()
}

// AllDrivers returns the full driver reference table.
func AllDrivers(ctx context.Context, db *sql.DB) ([]Driver, error) {
	rows, err := db.QueryContext(ctx, `SELECT racing_number, reference, first_name, last_name,
		full_name, broadcast_name, tla, team_name, team_color FROM driver_list`)
	if err != nil {
		return nil, fmt.Errorf("query drivers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var drivers []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.RacingNumber, &d.Reference, &d.FirstName, &d.LastName,
			&d.FullName, &d.BroadcastName, &d.Tla, &d.TeamName, &d.TeamColor); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}
