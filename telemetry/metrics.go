// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered at import so every code path, including tests, can
// increment them without an init handshake.
var (
	// JobCycles counts scheduled job runs by job name and outcome ("ok" or
	// "error").
	JobCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_job_cycles_total",
		Help: "Number of scheduled job cycles by job and outcome",
	}, []string{"job", "outcome"})

	ResultsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_results_delivered_total",
		Help: "Number of session results cached and broadcast",
	})

	BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_broadcasts_total",
		Help: "Number of channel-wide broadcast lines sent",
	})

	CalendarEventsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_calendar_events_upserted_total",
		Help: "Number of calendar events written by refresh cycles",
	})

	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_handled_total",
		Help: "Number of chat commands dispatched by command name",
	}, []string{"command"})

	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_api_errors_total",
		Help: "Number of upstream API failures by source",
	}, []string{"source"})
)

// JobOutcome maps a job error onto the outcome label.
func JobOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute when one is present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
