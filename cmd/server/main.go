// Command server runs the event-detection pipeline's HTTP API: start/stop a
// camera stream, list and stream detected events, and serve back the clips
// that produced them.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danztee/cctv-eventd/pkg/api"
	"github.com/danztee/cctv-eventd/pkg/controlplane"
	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/detector"
	"github.com/danztee/cctv-eventd/pkg/eventbus"
	"github.com/danztee/cctv-eventd/pkg/notify"
	"github.com/danztee/cctv-eventd/pkg/persistence"
	"github.com/danztee/cctv-eventd/pkg/pipeline"
	"github.com/danztee/cctv-eventd/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, continuing with process environment", "error", err)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8080")
	outputDir := getEnv("VIDEO_CHUNKS_DIR", "./data/clips")
	apiCredential := os.Getenv("GOOGLE_API_KEY")
	databaseURL := os.Getenv("DATABASE_URL")

	slog.Info("starting", "version", version.Full(), "http_addr", httpAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store persistence.EventStore
	databaseConfigured := databaseURL != ""
	if databaseConfigured {
		pgStore, err := persistence.NewPostgresStore(ctx, databaseURL, persistence.DefaultPoolConfig())
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		store = pgStore
		slog.Info("connected to event store")
	} else {
		slog.Warn("DATABASE_URL not set; POST /start will be rejected until it is configured")
		store = persistence.NewMemoryStore()
	}

	adapter, err := detector.NewGeminiAdapter(ctx, apiCredential)
	if err != nil {
		slog.Error("failed to build detector adapter", "error", err)
		os.Exit(1)
	}

	bus := eventbus.New[detection.Persisted]()
	orchestrator := pipeline.New(bus, adapter, store)
	cp := controlplane.New(orchestrator, store)

	notifier := notify.New(os.Getenv("SLACK_BOT_TOKEN"), os.Getenv("SLACK_CHANNEL_ID"))
	go notifier.Run(ctx, bus)

	server := api.NewServer(cp, bus, outputDir, apiCredential, databaseConfigured)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			slog.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := orchestratorStopIfRunning(orchestrator); err != nil {
		slog.Warn("error stopping pipeline during shutdown", "error", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down http server", "error", err)
	}

	slog.Info("stopped")
}

// orchestratorStopIfRunning stops the pipeline if it is active, and is a
// no-op otherwise; Stop on an idle pipeline returns an expected domain
// error that shutdown should not treat as a failure.
func orchestratorStopIfRunning(o *pipeline.Orchestrator) (bool, error) {
	if !o.Status().Active {
		return false, nil
	}
	return true, o.Stop()
}
