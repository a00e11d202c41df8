package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/obviyus/hamverbot/db"
)

// Handlers carries the dependencies shared by all endpoints.
type Handlers struct {
	DB *sql.DB
}

// HandleHealthz reports process liveness.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports readiness: the database must answer a ping.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		slog.Warn("readiness probe failed", slog.Any("err", err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type statusResponse struct {
	NextEvent         *statusEvent `json:"next_event"`
	LastDeliveredPath string       `json:"last_delivered_path,omitempty"`
}

type statusEvent struct {
	MeetingName string `json:"meeting_name"`
	SessionType string `json:"session_type"`
	StartTime   int64  `json:"start_time"`
}

// HandleStatus returns the next scheduled event and the most recently
// delivered result path.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := statusResponse{}

	ev, err := db.NextEvent(ctx, h.DB, 0, time.Now())
	if err != nil {
		slog.Error("status: next event lookup failed", slog.Any("err", err))
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if ev != nil {
		typeName, err := db.SessionTypeName(ctx, h.DB, ev.Session)
		if err != nil {
			slog.Error("status: session type lookup failed", slog.Any("err", err))
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		resp.NextEvent = &statusEvent{
			MeetingName: ev.MeetingName,
			SessionType: typeName,
			StartTime:   ev.StartTime,
		}
	}

	path, err := db.LatestResultPath(ctx, h.DB)
	if err != nil {
		slog.Error("status: latest result lookup failed", slog.Any("err", err))
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	resp.LastDeliveredPath = path

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("status: encode failed", slog.Any("err", err))
	}
}
