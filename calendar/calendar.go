// Package calendar ingests the published season calendar: fetch the ICS feed,
// classify each entry into a session type, derive a stable slug, and upsert
// the batch so repeated ingestion converges on the same rows.
package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/obviyus/hamverbot/db"
	"github.com/obviyus/hamverbot/event"
	"github.com/obviyus/hamverbot/telemetry"
)

// DefaultFeedURL is the public season calendar subscription.
const DefaultFeedURL = "https://ics.ecal.com/ecal-sub/660897ca63f9ca0008bcbea6/Formula%201.ics"

const fetchTimeout = 10 * time.Second

// Service fetches and persists the season calendar.
type Service struct {
	DB         *sql.DB
	FeedURL    string
	HTTPClient *http.Client
}

func (s *Service) feedURL() string {
	if s.FeedURL != "" {
		return s.FeedURL
	}
	return DefaultFeedURL
}

func (s *Service) http() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return defaultHTTPClient
}

var defaultHTTPClient = &http.Client{Timeout: fetchTimeout}

// Refresh downloads the feed and upserts every classifiable entry. Entries
// whose summary matches no known session pattern are dropped; a feed full of
// unrelated entries is not an error, only an empty upsert.
func (s *Service) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL(), nil)
	if err != nil {
		return fmt.Errorf("build calendar request: %w", err)
	}
	resp, err := s.http().Do(req)
	if err != nil {
		telemetry.APIErrors.WithLabelValues("calendar").Inc()
		return fmt.Errorf("fetch calendar: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		telemetry.APIErrors.WithLabelValues("calendar").Inc()
		return fmt.Errorf("fetch calendar: unexpected status %d", resp.StatusCode)
	}

	events, err := Parse(resp.Body)
	if err != nil {
		return err
	}
	if err := db.UpsertEvents(ctx, s.DB, events); err != nil {
		return err
	}
	telemetry.CalendarEventsUpserted.Add(float64(len(events)))
	slog.Info("calendar refreshed", slog.Int("events", len(events)))
	return nil
}

// Parse reads an ICS document and returns the classifiable session entries as
// storable rows.
func Parse(r io.Reader) ([]db.Event, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []db.Event
	for _, ve := range cal.Events() {
		prop := ve.GetProperty(ics.ComponentPropertySummary)
		if prop == nil {
			continue
		}
		summary := strings.TrimSpace(prop.Value)
		session, ok := event.ClassifySummary(summary)
		if !ok {
			slog.Debug("unclassifiable calendar entry dropped", slog.String("summary", summary))
			continue
		}
		start, err := ve.GetStartAt()
		if err != nil {
			slog.Warn("calendar entry without start time dropped", slog.String("summary", summary))
			continue
		}
		meeting := event.MeetingName(summary)
		startUnix := start.UTC().Unix()
		events = append(events, db.Event{
			MeetingName: meeting,
			Session:     session,
			StartTime:   startUnix,
			Slug:        event.Slug(meeting, session, startUnix),
		})
	}
	return events, nil
}
