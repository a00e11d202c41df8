// Command hamverbot is the main entrypoint for the IRC bot and its background
// workers. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts the IRC session, the scheduled jobs (result reconciliation,
//     session alerts, standings refreshes, calendar ingest) and a minimal
//     HTTP server with /healthz, /readyz, /status and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/obviyus/hamverbot/calendar"
	"github.com/obviyus/hamverbot/chat"
	"github.com/obviyus/hamverbot/command"
	"github.com/obviyus/hamverbot/config"
	"github.com/obviyus/hamverbot/db"
	"github.com/obviyus/hamverbot/livetiming"
	"github.com/obviyus/hamverbot/results"
	"github.com/obviyus/hamverbot/server"
	"github.com/obviyus/hamverbot/standings"
	"github.com/obviyus/hamverbot/telemetry"
	"github.com/obviyus/hamverbot/worker"
)

func main() {
	// Load .env if present (local dev convenience; production uses real env).
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.InitTracing("hamverbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timing := &livetiming.Client{BaseURL: cfg.LiveTimingURL}
	resultsSvc := &results.Service{DB: database, Timing: timing}
	standingsSvc := &standings.Service{DB: database, BaseURL: cfg.ErgastURL}
	calendarSvc := &calendar.Service{DB: database, FeedURL: cfg.CalendarURL}

	handlerDeps := &command.Handler{DB: database, Results: resultsSvc, Standings: standingsSvc, Config: cfg}

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat config invalid", slog.Any("err", err))
		os.Exit(1)
	}
	session := chat.New(cfg, database, handlerDeps.Handle)
	handlerDeps.Chat = session
	go func() {
		if err := session.Run(ctx); err != nil {
			slog.Error("irc session exited", slog.Any("err", err))
			stop()
		}
	}()

	// Ingest the calendar once at boot so commands have events even before
	// the first daily tick.
	go func() {
		bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := calendarSvc.Refresh(bootCtx); err != nil {
			slog.Warn("initial calendar refresh failed", slog.Any("err", err))
		}
	}()

	runner := worker.New(ctx)
	runner.Results = resultsSvc
	runner.Standings = standingsSvc
	runner.Calendar = calendarSvc
	runner.Broadcaster = session
	if err := runner.Register(); err != nil {
		slog.Error("failed to register jobs", slog.Any("err", err))
		os.Exit(1)
	}
	runner.Start()
	defer runner.Stop()

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1).
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	go func() {
		if err := server.Start(ctx, database, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}
