// Package main provides the entrypoint for the migration control gateway.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/govmigrate/govmigrate/internal/api"
	"github.com/govmigrate/govmigrate/internal/api/middleware"
	"github.com/govmigrate/govmigrate/internal/auth"
	"github.com/govmigrate/govmigrate/internal/config"
	"github.com/govmigrate/govmigrate/internal/database"
	"github.com/govmigrate/govmigrate/internal/events"
	"github.com/govmigrate/govmigrate/internal/flags"
	"github.com/govmigrate/govmigrate/internal/health"
	"github.com/govmigrate/govmigrate/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "govmigrate-gateway"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting migration control gateway")

	// Get configuration from environment
	port := getEnvOrDefault("APP_PORT", "8080")
	env := getEnvOrDefault("APP_ENV", "development")
	otlpEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Select the override repository: Postgres when a database is
	// configured, a local file otherwise, plain memory as the fallback.
	var repo flags.Repository
	switch {
	case os.Getenv("DB_ENABLED") == "true":
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgRepo := flags.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare override schema")
		}
		repo = pgRepo
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("using postgres override repository")

	case os.Getenv("FLAG_OVERRIDES_PATH") != "":
		repo = flags.NewFileRepository(os.Getenv("FLAG_OVERRIDES_PATH"))
		log.Info().
			Str("path", os.Getenv("FLAG_OVERRIDES_PATH")).
			Msg("using file override repository")

	default:
		repo = flags.NewInMemoryRepository()
		log.Warn().Msg("no override persistence configured, overrides are process-lifetime only")
	}

	// Event bus with optional Pub/Sub bridge
	bus := events.NewBus(log)
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		publisher, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: projectID,
			TopicName: getEnvOrDefault("PUBSUB_TOPIC", "migration-events"),
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize pubsub publisher")
		}
		defer publisher.Close()
		bus.Subscribe(publisher.Handler())
		log.Info().Str("project", projectID).Msg("pubsub event bridge initialized")
	}

	// Resolve the starting phase: the phase file wins over the environment.
	phase, err := flags.EnvironmentPhase(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid migration phase in environment")
	}
	var initial flags.Partial
	phaseFilePath := os.Getenv("PHASE_FILE")
	if phaseFilePath != "" {
		file, err := config.LoadPhaseFile(phaseFilePath)
		switch {
		case err == nil:
			if file.Phase != "" {
				phase = file.Phase
			}
			initial = file.OverridesPartial()
			log.Info().Str("phase", string(phase)).Str("path", phaseFilePath).Msg("phase file loaded")
		case errors.Is(err, config.ErrPhaseFileNotFound):
			log.Info().Str("path", phaseFilePath).Msg("phase file absent, using environment phase")
		default:
			log.Fatal().Err(err).Msg("failed to load phase file")
		}
	}

	// Flag store
	store, err := flags.NewStore(ctx, flags.StoreConfig{
		Phase:      phase,
		Initial:    initial,
		Repository: repo,
		Events:     bus,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize flag store")
	}
	log.Info().Str("phase", string(store.Phase())).Msg("flag store initialized")

	// Hot-reload the phase file while running
	if phaseFilePath != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{
			Path:   phaseFilePath,
			Logger: log,
			OnReload: func(file config.PhaseFile) {
				if file.Phase != "" {
					if err := store.SetPhase(file.Phase); err != nil {
						log.Error().Err(err).Msg("failed to apply reloaded phase")
					}
				}
				for key, value := range file.OverridesPartial() {
					if err := store.UpdateFlag(context.Background(), key, value); err != nil {
						log.Error().Err(err).Str("flag", string(key)).Msg("failed to apply reloaded override")
					}
				}
			},
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to watch phase file")
		}
		defer watcher.Close()

		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		go watcher.Run(watchCtx)
	}

	// Backend health monitoring
	registry, err := health.RegistryFromEnv(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service registry")
	}

	alerts := health.NewAlertManager(health.AlertManagerConfig{Logger: log})

	mode := health.ModeNormal
	if raw := os.Getenv("MONITOR_MODE"); raw != "" {
		mode, err = health.ParseMode(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid monitoring mode")
		}
	}

	checkMetrics, err := health.NewCheckMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize health check metrics")
	}

	monitor := health.NewMonitor(health.MonitorConfig{
		Registry: registry,
		Logger:   log,
		Alerts:   alerts,
		Mode:     mode,
		Metrics:  checkMetrics,
	})
	if err := monitor.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start health monitor")
	}
	defer monitor.Stop()

	// Operator token service
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokenService := auth.NewTokenService(auth.TokenConfig{
		SigningKey: signingKey,
		Issuer:     getEnvOrDefault("JWT_ISSUER", "https://gateway.govmigrate.local"),
		Audience:   getEnvOrDefault("JWT_AUDIENCE", "govmigrate-gateway"),
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		TokenService: tokenService,
		Store:        store,
		Monitor:      monitor,
		Registry:     registry,
		Alerts:       alerts,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
