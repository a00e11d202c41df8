package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/obviyus/hamverbot/event"
)

// Event is one scheduled session of a race weekend as produced by calendar
// ingestion. StartTime is epoch seconds UTC. Slug is the derived unique key.
type Event struct {
	MeetingName string
	Session     event.SessionType
	StartTime   int64
	Slug        string
}

// StoredEvent is an Event read back from the store with its row id.
type StoredEvent struct {
	ID          int64
	MeetingName string
	Session     event.SessionType
	StartTime   int64
}

// UpsertEvents writes a batch of calendar events in one transaction, keyed by
// slug. Re-ingesting the same calendar is a no-op beyond refreshed fields;
// events are never deleted here.
func UpsertEvents(ctx context.Context, db *sql.DB, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert events: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (meeting_name, event_type_id, start_time, event_slug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_slug) DO UPDATE SET
			meeting_name = EXCLUDED.meeting_name,
			event_type_id = EXCLUDED.event_type_id,
			start_time = EXCLUDED.start_time,
			updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("prepare upsert events: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.MeetingName, int(e.Session), e.StartTime, e.Slug); err != nil {
			return fmt.Errorf("upsert event %s: %w", e.Slug, err)
		}
	}
	return tx.Commit()
}

// NextEvent returns the soonest event starting strictly after now, optionally
// filtered by session type (pass 0 for any). Returns (nil, nil) when no
// upcoming event exists.
func NextEvent(ctx context.Context, db *sql.DB, session event.SessionType, now time.Time) (*StoredEvent, error) {
	q := `SELECT id, meeting_name, event_type_id, start_time FROM events WHERE start_time > $1`
	args := []any{now.Unix()}
	if session != 0 {
		q += ` AND event_type_id = $2`
		args = append(args, int(session))
	}
	q += ` ORDER BY start_time LIMIT 1`

	var ev StoredEvent
	var typeID int
	err := db.QueryRowContext(ctx, q, args...).Scan(&ev.ID, &ev.MeetingName, &typeID, &ev.StartTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query next event: %w", err)
	}
	ev.Session = event.SessionType(typeID)
	return &ev, nil
}

// EventBySlug looks up a stored event by its slug. Returns (nil, nil) when
// absent.
func EventBySlug(ctx context.Context, db *sql.DB, slug string) (*StoredEvent, error) {
	var ev StoredEvent
	var typeID int
	err := db.QueryRowContext(ctx,
		`SELECT id, meeting_name, event_type_id, start_time FROM events WHERE event_slug = $1`,
		slug).Scan(&ev.ID, &ev.MeetingName, &typeID, &ev.StartTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event by slug: %w", err)
	}
	ev.Session = event.SessionType(typeID)
	return &ev, nil
}

// SessionTypeName reads the canonical display name for a session type from
// the event_type table, keeping broadcast titles consistent with stored rows.
func SessionTypeName(ctx context.Context, db *sql.DB, t event.SessionType) (string, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM event_type WHERE id = $1`, int(t)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "Unknown", nil
	}
	if err != nil {
		return "", fmt.Errorf("query event type name: %w", err)
	}
	return name, nil
}

// FindEventID locates the event matching both meeting name and session type.
// The bool reports whether a match exists.
func FindEventID(ctx context.Context, db *sql.DB, meetingName string, t event.SessionType) (int64, bool, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM events WHERE meeting_name = $1 AND event_type_id = $2 LIMIT 1`,
		meetingName, int(t)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find event: %w", err)
	}
	return id, true, nil
}

// FindEventIDByName locates any event for the meeting regardless of session
// type. Used as the association fallback when the exact (name, type) match
// fails; this can pick the wrong session of the same weekend and is accepted
// as a heuristic.
func FindEventIDByName(ctx context.Context, db *sql.DB, meetingName string) (int64, bool, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM events WHERE meeting_name = $1 LIMIT 1`,
		meetingName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find event by name: %w", err)
	}
	return id, true, nil
}
