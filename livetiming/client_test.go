package livetiming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCurrentSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/SessionInfo.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// BOM prefix mirrors the real endpoint.
		_, _ = w.Write([]byte("\uFEFF{\"ArchiveStatus\":{\"Status\":\"Complete\"},\"Path\":\"2025/2025-06-15_Canadian_Grand_Prix/2025-06-15_Race/\",\"Meeting\":{\"OfficialName\":\"FORMULA 1 PIRELLI GRAND PRIX DU CANADA 2025\",\"Name\":\"Canadian Grand Prix\"}}"))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	info, err := c.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if !info.Complete {
		t.Errorf("Complete = false, want true")
	}
	if info.Path != "2025/2025-06-15_Canadian_Grand_Prix/2025-06-15_Race/" {
		t.Errorf("Path = %q", info.Path)
	}
	if info.Meeting.OfficialName != "FORMULA 1 PIRELLI GRAND PRIX DU CANADA 2025" {
		t.Errorf("OfficialName = %q", info.Meeting.OfficialName)
	}
}

func TestCurrentSessionInProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ArchiveStatus":{"Status":"Generating"},"Path":"p/"}`))
	}))
	defer srv.Close()

	info, err := (&Client{BaseURL: srv.URL}).CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if info.Complete {
		t.Errorf("Complete = true for non-Complete status")
	}
}

func TestDriverList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2025/race/DriverList.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"1":{"RacingNumber":"1","Tla":"VER","TeamName":"Red Bull Racing","FullName":"Max VERSTAPPEN"},"44":{"RacingNumber":"44","Tla":"HAM","TeamName":"Ferrari","FullName":"Lewis HAMILTON"}}`))
	}))
	defer srv.Close()

	drivers, err := (&Client{BaseURL: srv.URL}).DriverList(context.Background(), "2025/race/")
	if err != nil {
		t.Fatalf("DriverList: %v", err)
	}
	if len(drivers) != 2 {
		t.Fatalf("len = %d, want 2", len(drivers))
	}
	if d := drivers["44"]; d.Tla != "HAM" || d.TeamName != "Ferrari" {
		t.Errorf("driver 44 = %+v", d)
	}
}

func TestTimingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Lines":{"1":{"Position":"1","RacingNumber":"1","BestLapTime":{"Value":"1:12.345"},"Stats":[{"TimeDifftoPositionAhead":""}]},"44":{"Position":"2","RacingNumber":"44","BestLapTime":{"Value":"1:12.600"},"Stats":[{"TimeDifftoPositionAhead":"+0.255"}]}}}`))
	}))
	defer srv.Close()

	td, err := (&Client{BaseURL: srv.URL}).TimingData(context.Background(), "2025/race/")
	if err != nil {
		t.Fatalf("TimingData: %v", err)
	}
	line, ok := td.Lines["44"]
	if !ok {
		t.Fatalf("missing line 44")
	}
	if line.Position != "2" || line.BestLapTime.Value != "1:12.600" {
		t.Errorf("line 44 = %+v", line)
	}
	if line.Stats[0].TimeDifftoPositionAhead != "+0.255" {
		t.Errorf("gap = %q", line.Stats[0].TimeDifftoPositionAhead)
	}
}

func TestTimingDataMissingLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := (&Client{BaseURL: srv.URL}).TimingData(context.Background(), "p/"); err == nil {
		t.Error("expected error for payload without Lines")
	}
}

func TestGetJSONNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := (&Client{BaseURL: srv.URL}).CurrentSession(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}
