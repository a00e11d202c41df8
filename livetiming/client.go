// Package livetiming is a minimal client for the public live-timing static
// API: current session info, per-session driver lists, and timing data. All
// responses are JSON, occasionally prefixed with a UTF-8 BOM that must be
// stripped before decoding.
package livetiming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/obviyus/hamverbot/telemetry"
)

// DefaultBaseURL is the production live-timing endpoint.
const DefaultBaseURL = "https://livetiming.formula1.com/static"

// requestTimeout bounds every outbound call; a stalled request fails the
// current job cycle and is retried on the next tick.
const requestTimeout = 10 * time.Second

// Client fetches live-timing documents. The zero value uses the production
// base URL and a shared HTTP client with the fixed request timeout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// SessionInfo is the current-session descriptor. Path is an opaque archive
// path used as the result cache key; Complete reports whether the session has
// been archived.
type SessionInfo struct {
	Path     string
	Complete bool
	Meeting  Meeting
}

// Meeting carries the official meeting naming from SessionInfo.json.
type Meeting struct {
	OfficialName string `json:"OfficialName"`
	Name         string `json:"Name"`
}

// DriverEntry is one row of DriverList.json, keyed remotely by racing number.
type DriverEntry struct {
	RacingNumber  string `json:"RacingNumber"`
	Reference     string `json:"Reference"`
	FirstName     string `json:"FirstName"`
	LastName      string `json:"LastName"`
	FullName      string `json:"FullName"`
	BroadcastName string `json:"BroadcastName"`
	Tla           string `json:"Tla"`
	TeamName      string `json:"TeamName"`
	TeamColour    string `json:"TeamColour"`
}

// TimingLine is one driver's entry in TimingDataF1.json.
type TimingLine struct {
	Position     string `json:"Position"`
	RacingNumber string `json:"RacingNumber"`
	BestLapTime  struct {
		Value string `json:"Value"`
	} `json:"BestLapTime"`
	Stats []struct {
		TimeDifftoPositionAhead string `json:"TimeDifftoPositionAhead"`
	} `json:"Stats"`
}

// TimingData is the per-driver Lines map of TimingDataF1.json.
type TimingData struct {
	Lines map[string]TimingLine `json:"Lines"`
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}

var defaultHTTPClient = &http.Client{Timeout: requestTimeout}

// getJSON fetches a URL and decodes the (possibly BOM-prefixed) JSON body
// into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.APIErrors.WithLabelValues("livetiming").Inc()
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		telemetry.APIErrors.WithLabelValues("livetiming").Inc()
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	clean := strings.TrimPrefix(strings.TrimSpace(string(body)), "\uFEFF")
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// CurrentSession fetches SessionInfo.json and reports the current archive
// path with its completion status and meeting naming.
func (c *Client) CurrentSession(ctx context.Context) (*SessionInfo, error) {
	var raw struct {
		ArchiveStatus struct {
			Status string `json:"Status"`
		} `json:"ArchiveStatus"`
		Path    string  `json:"Path"`
		Meeting Meeting `json:"Meeting"`
	}
	if err := c.getJSON(ctx, c.base()+"/SessionInfo.json", &raw); err != nil {
		return nil, err
	}
	return &SessionInfo{
		Path:     raw.Path,
		Complete: raw.ArchiveStatus.Status == "Complete",
		Meeting:  raw.Meeting,
	}, nil
}

// DriverList fetches the racing-number-keyed driver records for a session
// path.
func (c *Client) DriverList(ctx context.Context, path string) (map[string]DriverEntry, error) {
	var out map[string]DriverEntry
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%sDriverList.json", c.base(), path), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TimingData fetches the per-driver timing lines for a session path.
func (c *Client) TimingData(ctx context.Context, path string) (*TimingData, error) {
	var out TimingData
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%sTimingDataF1.json", c.base(), path), &out); err != nil {
		return nil, err
	}
	if out.Lines == nil {
		return nil, fmt.Errorf("timing data for %s has no Lines", path)
	}
	return &out, nil
}
