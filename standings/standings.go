// Package standings caches and formats the drivers' and constructors'
// championship tables. Snapshots come from an Ergast-compatible API and are
// cached in the championship_standings table, one row per discriminator;
// reads prefer the cache and fall back to a fresh fetch when the cached
// payload does not parse.
package standings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/obviyus/hamverbot/db"
	"github.com/obviyus/hamverbot/telemetry"
)

// DefaultBaseURL is the Ergast-compatible standings API.
const DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"

const requestTimeout = 10 * time.Second

// DriverStandings is the drivers' championship envelope.
type DriverStandings struct {
	MRData struct {
		StandingsTable struct {
			Season         string `json:"season"`
			StandingsLists []struct {
				DriverStandings []struct {
					Position string `json:"position"`
					Points   string `json:"points"`
					Driver   struct {
						Code string `json:"code"`
					} `json:"Driver"`
				} `json:"DriverStandings"`
			} `json:"StandingsLists"`
		} `json:"StandingsTable"`
	} `json:"MRData"`
}

// ConstructorStandings is the constructors' championship envelope.
type ConstructorStandings struct {
	MRData struct {
		StandingsTable struct {
			Season         string `json:"season"`
			StandingsLists []struct {
				ConstructorStandings []struct {
					Position    string `json:"position"`
					Points      string `json:"points"`
					Constructor struct {
						Name string `json:"name"`
					} `json:"Constructor"`
				} `json:"ConstructorStandings"`
			} `json:"StandingsLists"`
		} `json:"StandingsTable"`
	} `json:"MRData"`
}

// Service fetches and caches championship standings. The zero BaseURL means
// production.
type Service struct {
	DB         *sql.DB
	BaseURL    string
	HTTPClient *http.Client
}

func (s *Service) base() string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (s *Service) http() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return defaultHTTPClient
}

var defaultHTTPClient = &http.Client{Timeout: requestTimeout}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	resp, err := s.http().Do(req)
	if err != nil {
		telemetry.APIErrors.WithLabelValues("ergast").Inc()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		telemetry.APIErrors.WithLabelValues("ergast").Inc()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return []byte(strings.TrimPrefix(strings.TrimSpace(string(body)), "\uFEFF")), nil
}

// RefreshDrivers fetches the current drivers' championship and overwrites the
// cached snapshot. Used by the hourly job.
func (s *Service) RefreshDrivers(ctx context.Context) error {
	data, err := s.fetch(ctx, s.base()+"/current/driverstandings/?format=json")
	if err != nil {
		return err
	}
	var parsed DriverStandings
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("decode driver standings: %w", err)
	}
	return db.UpsertStandings(ctx, s.DB, db.StandingsDrivers, data)
}

// RefreshConstructors fetches the current constructors' championship and
// overwrites the cached snapshot. Used by the hourly job.
func (s *Service) RefreshConstructors(ctx context.Context) error {
	data, err := s.fetch(ctx, s.base()+"/current/constructorstandings/?format=json")
	if err != nil {
		return err
	}
	var parsed ConstructorStandings
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("decode constructor standings: %w", err)
	}
	return db.UpsertStandings(ctx, s.DB, db.StandingsConstructors, data)
}

// snapshot returns the cached payload for the discriminator, refreshing from
// the API when the cache is empty or unparseable.
func (s *Service) snapshot(ctx context.Context, kind int, refresh func(context.Context) error, parse func([]byte) error) error {
	data, ok, err := db.Standings(ctx, s.DB, kind)
	if err != nil {
		return err
	}
	if ok {
		if err := parse(data); err == nil {
			return nil
		}
		slog.Warn("cached standings unparseable, refetching", slog.Int("kind", kind))
	}
	if err := refresh(ctx); err != nil {
		return err
	}
	data, ok, err = db.Standings(ctx, s.DB, kind)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("standings kind %d missing after refresh", kind)
	}
	return parse(data)
}

// DriversMessage returns the formatted top-10 drivers' championship line.
func (s *Service) DriversMessage(ctx context.Context) (string, error) {
	var standings DriverStandings
	err := s.snapshot(ctx, db.StandingsDrivers, s.RefreshDrivers, func(data []byte) error {
		return json.Unmarshal(data, &standings)
	})
	if err != nil {
		return "", err
	}
	return formatDrivers(&standings)
}

// ConstructorsMessage returns the formatted top-10 constructors' championship
// line.
func (s *Service) ConstructorsMessage(ctx context.Context) (string, error) {
	var standings ConstructorStandings
	err := s.snapshot(ctx, db.StandingsConstructors, s.RefreshConstructors, func(data []byte) error {
		return json.Unmarshal(data, &standings)
	})
	if err != nil {
		return "", err
	}
	return formatConstructors(&standings)
}

func formatDrivers(standings *DriverStandings) (string, error) {
	lists := standings.MRData.StandingsTable.StandingsLists
	if len(lists) == 0 {
		return "", fmt.Errorf("driver standings: empty standings lists")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F3C6 \x02FORMULA 1 %s WDC Standings\x02:", standings.MRData.StandingsTable.Season)
	top := lists[0].DriverStandings
	if len(top) > 10 {
		top = top[:10]
	}
	for _, entry := range top {
		fmt.Fprintf(&b, " %s. %s - \x0303[%s]\x03", entry.Position, entry.Driver.Code, entry.Points)
	}
	return b.String(), nil
}

func formatConstructors(standings *ConstructorStandings) (string, error) {
	lists := standings.MRData.StandingsTable.StandingsLists
	if len(lists) == 0 {
		return "", fmt.Errorf("constructor standings: empty standings lists")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F527 \x02FORMULA 1 %s WCC Standings\x02:", standings.MRData.StandingsTable.Season)
	top := lists[0].ConstructorStandings
	if len(top) > 10 {
		top = top[:10]
	}
	for _, entry := range top {
		fmt.Fprintf(&b, " %s. %s - \x0303[%s]\x03", entry.Position, entry.Constructor.Name, entry.Points)
	}
	return b.String(), nil
}
