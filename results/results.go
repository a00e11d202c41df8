// Package results implements the result-cache reconciler: deciding, on each
// polling tick, whether a freshly archived session has results that were not
// yet delivered, caching them keyed by the session's live-timing path, and
// broadcasting only what the cache confirms was stored. A result row's
// existence for a path is the single delivered signal; nothing is announced
// for a path that could not be cached.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/obviyus/hamverbot/db"
	"github.com/obviyus/hamverbot/event"
	"github.com/obviyus/hamverbot/livetiming"
	"github.com/obviyus/hamverbot/telemetry"
)

// Broadcaster delivers one formatted line to every registered channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, line string)
}

// Service drives result reconciliation against the live-timing API and the
// result cache.
type Service struct {
	DB     *sql.DB
	Timing *livetiming.Client
}

// DriverStanding is one classified row of a session result, in finishing
// order.
type DriverStanding struct {
	Position   int    `json:"position"`
	DriverName string `json:"driverName"`
	TeamName   string `json:"teamName"`
	Time       string `json:"time"`
	Difference string `json:"difference,omitempty"`
}

// SessionResult is the serialized payload cached in the results table.
type SessionResult struct {
	Title     string           `json:"title"`
	Standings []DriverStanding `json:"standings"`
}

// CheckOnce runs one reconciliation cycle:
//
//  1. Read the current session descriptor.
//  2. Stop unless the session is archived (Complete).
//  3. Stop if a result row already exists for its path.
//  4. Fetch, extract and cache the standings.
//  5. Re-check the cache; broadcast only when the row is confirmed present.
//
// The re-check in step 5 means a result that could not be associated with a
// stored event (and therefore was not cached) is computed but never
// broadcast, so the next tick retries from scratch instead of leaving the
// delivered signal untrustworthy.
func (s *Service) CheckOnce(ctx context.Context, b Broadcaster) error {
	cur, err := s.Timing.CurrentSession(ctx)
	if err != nil {
		return fmt.Errorf("read current session: %w", err)
	}
	if !cur.Complete {
		slog.Debug("session not archived yet", slog.String("path", cur.Path))
		return nil
	}
	delivered, err := db.ResultDelivered(ctx, s.DB, cur.Path)
	if err != nil {
		return err
	}
	if delivered {
		return nil
	}

	line, err := s.Message(ctx, cur.Path)
	if err != nil {
		return fmt.Errorf("fetch results for %s: %w", cur.Path, err)
	}

	delivered, err = db.ResultDelivered(ctx, s.DB, cur.Path)
	if err != nil {
		return err
	}
	if !delivered {
		slog.Warn("result not cached, suppressing broadcast",
			slog.String("path", cur.Path), slog.String("component", "results"))
		return nil
	}

	b.Broadcast(ctx, line)
	telemetry.ResultsDelivered.Inc()
	slog.Info("delivered session result", slog.String("path", cur.Path))
	return nil
}

// Message returns the formatted standings line for a path, preferring the
// cached payload and falling back to a fresh fetch when no cache row exists
// or the cached payload does not parse.
func (s *Service) Message(ctx context.Context, path string) (string, error) {
	meeting, typeName, data, ok, err := db.CachedResult(ctx, s.DB, path)
	if err != nil {
		return "", err
	}
	if ok {
		var cached SessionResult
		if err := json.Unmarshal(data, &cached); err == nil {
			// Rebuild the title from stored rows so display names always
			// track the event table, not whatever was serialized.
			cached.Title = fmt.Sprintf("%s: %s", meeting, typeName)
			return Format(&cached), nil
		}
		slog.Warn("cached result unparseable, refetching", slog.String("path", path))
	}
	fresh, err := s.fetchFresh(ctx, path)
	if err != nil {
		return "", err
	}
	return Format(fresh), nil
}

// fetchFresh pulls timing data and session metadata from the live-timing API,
// extracts standings, and caches the payload against the best-matching stored
// event. When no event matches, the result is still returned for display but
// deliberately not cached, so a later cycle retries.
func (s *Service) fetchFresh(ctx context.Context, path string) (*SessionResult, error) {
	// Refresh driver reference data first; extraction cross-references it by
	// racing number. Best effort: stale reference data only degrades names.
	if err := s.RefreshDrivers(ctx, path); err != nil {
		slog.Warn("driver list refresh failed", slog.Any("err", err), slog.String("path", path))
	}

	timing, err := s.Timing.TimingData(ctx, path)
	if err != nil {
		return nil, err
	}
	cur, err := s.Timing.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}

	drivers, err := db.AllDrivers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	standings := extractStandings(timing, drivers)

	sessionType, haveType := event.ClassifySessionKey(event.SessionKeyFromPath(path))
	sessionName := ""
	if haveType {
		if sessionName, err = db.SessionTypeName(ctx, s.DB, sessionType); err != nil {
			return nil, err
		}
	}

	title := cur.Meeting.OfficialName
	if sessionName != "" {
		title = fmt.Sprintf("%s: %s", title, sessionName)
	}
	result := &SessionResult{Title: title, Standings: standings}

	if !haveType {
		slog.Warn("unknown session type in path, skipping result storage",
			slog.String("path", path))
		return result, nil
	}

	eventID, found, err := db.FindEventID(ctx, s.DB, cur.Meeting.OfficialName, sessionType)
	if err != nil {
		return nil, err
	}
	if !found {
		// Name-only fallback; may pick a sibling session of the same
		// weekend, accepted as a heuristic join.
		if eventID, found, err = db.FindEventIDByName(ctx, s.DB, cur.Meeting.OfficialName); err != nil {
			return nil, err
		}
	}
	if !found {
		slog.Warn("no matching event to store result against",
			slog.String("meeting", cur.Meeting.OfficialName),
			slog.Int("session_type", int(sessionType)))
		return result, nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err := db.InsertResult(ctx, s.DB, eventID, path, payload); err != nil {
		slog.Error("failed to cache result", slog.Any("err", err), slog.String("path", path))
		return result, nil
	}
	return result, nil
}

// RefreshDrivers overwrites the driver reference table from the session's
// DriverList document.
func (s *Service) RefreshDrivers(ctx context.Context, path string) error {
	entries, err := s.Timing.DriverList(ctx, path)
	if err != nil {
		return err
	}
	drivers := make([]db.Driver, 0, len(entries))
	for _, e := range entries {
		num, err := strconv.Atoi(e.RacingNumber)
		if err != nil {
			slog.Warn("driver entry with bad racing number skipped", slog.String("value", e.RacingNumber))
			continue
		}
		color := e.TeamColour
		if color == "" {
			color = "#FFFFFF"
		}
		drivers = append(drivers, db.Driver{
			RacingNumber:  num,
			Reference:     e.Reference,
			FirstName:     e.FirstName,
			LastName:      e.LastName,
			FullName:      e.FullName,
			BroadcastName: e.BroadcastName,
			Tla:           e.Tla,
			TeamName:      e.TeamName,
			TeamColor:     color,
		})
	}
	return db.UpsertDrivers(ctx, s.DB, drivers)
}

// extractStandings cross-references timing lines with the driver reference
// table by racing number and returns rows sorted by position. Lines without
// position/number or without a reference entry are skipped, never fatal.
func extractStandings(timing *livetiming.TimingData, drivers []db.Driver) []DriverStanding {
	byNumber := make(map[int]db.Driver, len(drivers))
	for _, d := range drivers {
		byNumber[d.RacingNumber] = d
	}

	standings := make([]DriverStanding, 0, len(timing.Lines))
	for key, line := range timing.Lines {
		if line.Position == "" {
			continue
		}
		position, err := strconv.Atoi(line.Position)
		if err != nil {
			continue
		}
		// Lines are keyed by racing number; the embedded field is not always
		// populated in archived documents.
		numberText := line.RacingNumber
		if numberText == "" {
			numberText = key
		}
		number, err := strconv.Atoi(numberText)
		if err != nil {
			continue
		}
		driver, ok := byNumber[number]
		if !ok {
			slog.Warn("driver not in reference table", slog.Int("racing_number", number))
			continue
		}
		difference := ""
		for _, stat := range line.Stats {
			if stat.TimeDifftoPositionAhead != "" {
				difference = stat.TimeDifftoPositionAhead
				break
			}
		}
		standings = append(standings, DriverStanding{
			Position:   position,
			DriverName: driver.Tla,
			TeamName:   driver.TeamName,
			Time:       line.BestLapTime.Value,
			Difference: difference,
		})
	}
	sort.Slice(standings, func(i, j int) bool { return standings[i].Position < standings[j].Position })
	return standings
}

// Format renders a session result as a single IRC line, capped at the top 10
// finishers to avoid flooding channels.
func Format(result *SessionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F3CE️ \x02%s Results\x02:", result.Title)
	top := result.Standings
	if len(top) > 10 {
		top = top[:10]
	}
	for _, standing := range top {
		fmt.Fprintf(&b, " %d. %s - \x0303[%s]\x03", standing.Position, standing.DriverName, standing.Time)
	}
	return b.String()
}

// LatestMessage serves the `prev` command: the most recently cached path, or
// the live session when the cache is empty and that session is already
// archived.
func (s *Service) LatestMessage(ctx context.Context) (string, error) {
	path, err := db.LatestResultPath(ctx, s.DB)
	if err != nil {
		return "", err
	}
	if path == "" {
		cur, err := s.Timing.CurrentSession(ctx)
		if err != nil {
			return "", err
		}
		if !cur.Complete {
			return "", nil
		}
		path = cur.Path
	}
	if path == "" {
		return "", nil
	}
	return s.Message(ctx, path)
}
