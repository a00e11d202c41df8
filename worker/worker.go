// Package worker schedules the background jobs: result reconciliation,
// imminent-session alerts, standings refreshes and the daily calendar
// ingest. Every job swallows its own errors; a failed cycle is logged and
// counted, and the next tick retries from scratch.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/obviyus/hamverbot/calendar"
	"github.com/obviyus/hamverbot/results"
	"github.com/obviyus/hamverbot/standings"
	"github.com/obviyus/hamverbot/telemetry"
)

// Schedules, standard five-field cron syntax.
const (
	resultSchedule       = "*/5 * * * *"
	alertSchedule        = "*/5 * * * *"
	driversSchedule      = "0 * * * *"
	constructorsSchedule = "0 * * * *"
	calendarSchedule     = "0 0 * * *"
)

// Runner owns the cron scheduler and the jobs attached to it.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context

	Results     *results.Service
	Standings   *standings.Service
	Calendar    *calendar.Service
	Broadcaster results.Broadcaster
}

// New builds a runner whose jobs inherit baseCtx, so cancelling it cancels
// in-flight cycles.
func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(),
		baseCtx: baseCtx,
	}
}

// Register attaches all five jobs. Call once before Start.
func (r *Runner) Register() error {
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{"result_check", resultSchedule, func(ctx context.Context) error {
			return r.Results.CheckOnce(ctx, r.Broadcaster)
		}},
		{"event_alert", alertSchedule, func(ctx context.Context) error {
			return r.Results.CheckUpcoming(ctx, r.Broadcaster, time.Now())
		}},
		{"driver_standings", driversSchedule, func(ctx context.Context) error {
			return r.Standings.RefreshDrivers(ctx)
		}},
		{"constructor_standings", constructorsSchedule, func(ctx context.Context) error {
			return r.Standings.RefreshConstructors(ctx)
		}},
		{"calendar_refresh", calendarSchedule, func(ctx context.Context) error {
			return r.Calendar.Refresh(ctx)
		}},
	}
	for _, job := range jobs {
		if _, err := r.cron.AddFunc(job.schedule, r.wrap(job.name, job.run)); err != nil {
			return err
		}
	}
	return nil
}

// wrap gives every job the shared error discipline: log, count, never
// propagate.
func (r *Runner) wrap(name string, run func(context.Context) error) func() {
	return func() {
		start := time.Now()
		err := run(r.baseCtx)
		telemetry.JobCycles.WithLabelValues(name, telemetry.JobOutcome(err)).Inc()
		if err != nil {
			slog.Error("job cycle failed",
				slog.String("job", name), slog.Any("err", err),
				slog.Duration("elapsed", time.Since(start)))
			return
		}
		slog.Debug("job cycle complete",
			slog.String("job", name), slog.Duration("elapsed", time.Since(start)))
	}
}

// Start begins scheduling. Jobs run on their cron ticks only; callers who
// want an immediate first pass (calendar ingest on boot) invoke the services
// directly.
func (r *Runner) Start() {
	slog.Info("worker started")
	r.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("worker stopped")
}
