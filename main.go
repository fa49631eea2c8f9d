// Command gameday-bot follows live MLB games and posts every reportable play to the
// subscribed Discord channels.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres, runs idempotent migrations and loads subscriptions.
//   - Starts the schedule poller, which tracks a live game over the gameday push
//     socket and reports plays, then backfills savant metrics into the sent messages.
//   - Exposes an HTTP server with /healthz, /readyz, /status, /metrics and the admin
//     subscription API.
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

	"github.com/onnwee/gameday-bot/config"
	"github.com/onnwee/gameday-bot/db"
	"github.com/onnwee/gameday-bot/discord"
	"github.com/onnwee/gameday-bot/gameday"
	"github.com/onnwee/gameday-bot/mlbapi"
	"github.com/onnwee/gameday-bot/server"
	"github.com/onnwee/gameday-bot/subscription"
	"github.com/onnwee/gameday-bot/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
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
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Tracing is optional; it only exports when OTEL_EXPORTER_OTLP_ENDPOINT is set.
	shutdownTracing, err := telemetry.InitTracing("gameday-bot", "1.0.0")
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

	// Versioned migrations first; the idempotent embedded schema covers databases
	// created before schema_migrations existed.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded schema",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded schema failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subs := subscription.NewService(&db.SubscriptionRepo{DB: database})
	if err := subs.Refresh(ctx); err != nil {
		slog.Error("failed to load subscriptions", slog.Any("err", err))
		os.Exit(1)
	}

	var messenger gameday.Messenger
	if err := cfg.ValidateDiscordReady(); err != nil {
		slog.Warn("discord disabled; plays are logged instead of sent", slog.Any("err", err))
		messenger = discord.NewDryRun()
	} else {
		client, err := discord.New(cfg.DiscordToken)
		if err != nil {
			slog.Error("discord session init failed", slog.Any("err", err))
			os.Exit(1)
		}
		if err := client.Open(); err != nil {
			slog.Error("discord gateway connect failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				slog.Warn("discord close failed", slog.Any("err", err))
			}
		}()
		messenger = client
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	stats := &mlbapi.StatsClient{BaseURL: cfg.StatsAPIBaseURL, HTTPClient: httpClient}
	savant := &mlbapi.SavantClient{BaseURL: cfg.SavantBaseURL, HTTPClient: httpClient}

	dispatcher := &gameday.Dispatcher{
		Messenger:   messenger,
		Subscribers: subs,
		Backfill: &gameday.Backfiller{
			Metrics:     savant,
			Messenger:   messenger,
			Interval:    cfg.SavantPollInterval,
			MaxAttempts: cfg.SavantMaxAttempts,
		},
	}
	poller := &gameday.Poller{
		Schedule: stats,
		Feed:     stats,
		Push:     &mlbapi.PushClient{URL: cfg.GamedayWSURL},
		Reporter: &gameday.Reporter{
			Extractor:  &gameday.Extractor{FavoriteTeamID: cfg.TeamID, Calls: gameday.RandomPicker{}},
			Dispatcher: dispatcher,
		},
		State:    db.KVStore{DB: database},
		TeamID:   cfg.TeamID,
		Interval: cfg.StatusPollInterval,
		Now:      cfg.Now,
	}
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
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
		deps := server.Deps{DB: database, Subscriptions: subs, Tracker: poller}
		if err := server.Start(ctx, cfg.HTTPAddr, deps); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down; waiting for scheduled sends and backfills")
	if !drain(pollerDone, dispatcher.Wait, 30*time.Second) {
		slog.Warn("shutdown timeout; abandoning pending sends")
	}
}

// drain waits for the poller to stop dispatching, then for wait to return. Nothing
// may be dispatched once wait has started. It reports false if timeout passes first.
func drain(pollerDone <-chan struct{}, wait func(), timeout time.Duration) bool {
	deadline := time.After(timeout)
	select {
	case <-pollerDone:
	case <-deadline:
		return false
	}
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-deadline:
		return false
	}
}
