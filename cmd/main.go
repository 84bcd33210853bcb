package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/api"
	"github.com/UnknownOlympus/fencewatch/internal/config"
	"github.com/UnknownOlympus/fencewatch/internal/containment"
	"github.com/UnknownOlympus/fencewatch/internal/geocoding"
	"github.com/UnknownOlympus/fencewatch/internal/location"
	"github.com/UnknownOlympus/fencewatch/internal/metrics"
	"github.com/UnknownOlympus/fencewatch/internal/notify"
	"github.com/UnknownOlympus/fencewatch/internal/repository"
	"github.com/UnknownOlympus/fencewatch/internal/service"
	"github.com/UnknownOlympus/fencewatch/internal/store"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server and sinks.
const shutdownTimeout = 10 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	engine, err := containment.NewEngine(containment.EngineType(cfg.Engine))
	if err != nil {
		log.Fatalf("Failed to create containment engine: %v", err)
	}

	var (
		sinks    []notify.Named
		events   api.EventSource
		overlays api.OverlayFactory
		conn     *nats.Conn
	)
	pings := make(map[string]api.PingFunc)

	// NATS carries positions in and status updates and overlay releases out.
	if cfg.NATS.URL != "" {
		conn, err = nats.Connect(cfg.NATS.URL,
			nats.Name("fencewatch"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer func() { _ = conn.Drain() }()

		sinks = append(sinks, notify.Named{
			Name: "nats",
			Sink: notify.NewStatusPublisher(conn, cfg.NATS.StatusSubject),
		})
		overlays = notify.NewOverlayReleaser(logger, conn, cfg.NATS.ReleaseSubject)
		pings["nats"] = func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}

	if cfg.Valkey.Addr != "" {
		snapshots, errValkey := notify.NewValkeyStore(cfg.Valkey.Addr)
		if errValkey != nil {
			log.Fatalf("Failed to connect to Valkey: %v", errValkey)
		}
		defer snapshots.Close()

		sinks = append(sinks, notify.Named{
			Name: "valkey",
			Sink: notify.NewSnapshotSink(snapshots, cfg.Valkey.Key, cfg.Valkey.TTL),
		})
	}

	if cfg.Database.Enabled {
		// Initialize the database connection.
		dtb, errDB := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if errDB != nil {
			log.Fatalf("Failed to connect to DB: %v", errDB)
		}
		defer dtb.Close()

		repo := repository.NewRepository(dtb, logger)
		if errDB = repo.EnsureSchema(ctx); errDB != nil {
			log.Fatalf("Failed to prepare DB schema: %v", errDB)
		}

		sinks = append(sinks, notify.Named{
			Name: "postgres",
			Sink: notify.Transitions(notify.SinkFunc(repo.InsertEvent)),
		})
		events = repo
		pings["database"] = dtb.Ping
	}

	fanout := notify.NewFanout(logger, appMetrics, sinks...)
	ctrl := service.NewController(logger, store.New(), engine, fanout, appMetrics)
	logger.InfoContext(ctx, "Controller initialized", "engine", engine.Name(), "sinks", fanout.Len())

	platform, err := location.NewPlatform(location.PlatformConfig{
		Type:    location.PlatformType(cfg.Location.Platform),
		Conn:    conn,
		Subject: cfg.Location.Subject,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to create location platform: %v", err)
	}

	source := location.NewSource(logger, platform, ctrl)
	_, err = source.Start(ctx, location.Options{
		HighAccuracy:   cfg.Location.HighAccuracy,
		MaxSampleAge:   cfg.Location.MaxSampleAge,
		AcquireTimeout: cfg.Location.AcquireTimeout,
	})
	switch {
	case errors.Is(err, location.ErrUnsupportedPlatform):
		logger.WarnContext(ctx, "Location watching unavailable, status stays UNKNOWN", "platform", cfg.Location.Platform)
	case err != nil:
		log.Fatalf("Failed to start location source: %v", err)
	}

	// Create geocoding provider using factory pattern based on configuration.
	geocoder, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		Region:    cfg.Geocoder.Region,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}

	handler := api.NewHandler(
		logger,
		ctrl,
		events,
		overlays,
		geocoder,
		rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
	)
	server := newServer(api.NewRouter(handler, reg, pings), cfg.Port)

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	// Start the server in a goroutine to allow main to listen for signals.
	go startServer(ctx, logger, server)

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Server shutdown failed", "error", err)
	}
	source.Stop()
	ctrl.Shutdown(shutdownCtx)

	// Log graceful shutdown completion.
	logger.InfoContext(shutdownCtx, "Application stopped gracefully.")
}

// newServer creates the HTTP server for the API and monitoring endpoints.
func newServer(handler http.Handler, port int) *http.Server {
	readTimeout := 5
	writeTimeout := 10
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
}

// startServer runs server until it is shut down, logging anything other than a graceful close.
func startServer(ctx context.Context, log *slog.Logger, server *http.Server) {
	log.InfoContext(ctx, "Starting HTTP server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "HTTP server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
