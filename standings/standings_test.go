package standings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const driverPayload = `{"MRData":{"StandingsTable":{"season":"2025","StandingsLists":[{"DriverStandings":[
	{"position":"1","points":"255","Driver":{"code":"PIA"}},
	{"position":"2","points":"240","Driver":{"code":"NOR"}},
	{"position":"3","points":"185","Driver":{"code":"VER"}}
]}]}}}`

const constructorPayload = `{"MRData":{"StandingsTable":{"season":"2025","StandingsLists":[{"ConstructorStandings":[
	{"position":"1","points":"495","Constructor":{"name":"McLaren"}},
	{"position":"2","points":"290","Constructor":{"name":"Ferrari"}}
]}]}}}`

func TestFormatDriversTopTen(t *testing.T) {
	var standings DriverStandings
	if err := json.Unmarshal([]byte(driverPayload), &standings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := formatDrivers(&standings)
	if err != nil {
		t.Fatalf("formatDrivers: %v", err)
	}
	if !strings.Contains(got, "2025 WDC Standings") {
		t.Errorf("missing season header: %q", got)
	}
	if !strings.Contains(got, "1. PIA - \x0303[255]\x03") {
		t.Errorf("missing leader entry: %q", got)
	}
	if !strings.Contains(got, "3. VER") {
		t.Errorf("missing third entry: %q", got)
	}
}

func TestFormatConstructors(t *testing.T) {
	var standings ConstructorStandings
	if err := json.Unmarshal([]byte(constructorPayload), &standings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := formatConstructors(&standings)
	if err != nil {
		t.Fatalf("formatConstructors: %v", err)
	}
	if !strings.Contains(got, "WCC Standings") || !strings.Contains(got, "1. McLaren") {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestFormatDriversEmptyLists(t *testing.T) {
	var standings DriverStandings
	if err := json.Unmarshal([]byte(`{"MRData":{"StandingsTable":{"season":"2025","StandingsLists":[]}}}`), &standings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := formatDrivers(&standings); err == nil {
		t.Error("expected error for empty standings lists")
	}
}

func TestFetchStripsBOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\uFEFF" + driverPayload))
	}))
	defer srv.Close()

	s := &Service{BaseURL: srv.URL}
	data, err := s.fetch(context.Background(), srv.URL+"/current/driverstandings/?format=json")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var parsed DriverStandings
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("payload not clean after BOM strip: %v", err)
	}
	if parsed.MRData.StandingsTable.Season != "2025" {
		t.Errorf("season = %q", parsed.MRData.StandingsTable.Season)
	}
}
