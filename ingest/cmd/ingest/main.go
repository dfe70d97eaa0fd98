package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmaynor/property-mangement-pane/common/database"
	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/common/messaging"
	natsclient "github.com/dmaynor/property-mangement-pane/common/messaging/nats"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/audit"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/config"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector/appfolio"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/dlq"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/events"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/handlers"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/normalizer"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/pipeline"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/ratelimit"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/repository"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/server"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/service"
	"github.com/dmaynor/property-mangement-pane/ingest/migrations"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("ingest"))
	logging.SetDefault(logger)

	slog.Info("Starting Ingest service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	ctx := context.Background()

	dsn, err := database.ParseDSN(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Invalid database URL: %v", err)
	}
	if cfg.Database.MigrateOnStart || *migrateOnly {
		if err := migrations.Up(ctx, cfg.Database.URL, migrations.Options{Logger: logger.Logger}); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		slog.Info("Database schema is up to date", slog.String("dialect", string(dsn.Dialect)))
	}
	if *migrateOnly {
		return
	}

	// Initialize storage
	store, err := repository.Open(ctx, cfg.Database.URL, repository.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: repository.DefaultOptions().ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		limiter, err := ratelimit.NewRedisRateLimiter(ctx,
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
			false,
		)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting", slog.String("error", err.Error()))
		} else {
			rateLimiter = limiter
			slog.Info("Webhook rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow))
		}
	} else {
		slog.Info("Webhook rate limiting disabled")
	}
	defer rateLimiter.Close()

	// Initialize messaging
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithConfig(pipeline.Config{
			BatchTimeout: cfg.Ingestion.BatchTimeout,
			Strict:       cfg.Ingestion.Strict,
		}),
	}
	handlerOpts := []handlers.Option{
		handlers.WithLogger(logger),
		handlers.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Logger = logger.Logger

		var client messaging.Client
		if cfg.NATS.DLQEnabled {
			jsClient, err := natsclient.NewJetStreamClient(natsCfg)
			if err != nil {
				log.Fatalf("Failed to connect to NATS: %v", err)
			}
			queue, err := dlq.NewJetStreamQueue(ctx, jsClient, logger)
			if err != nil {
				log.Fatalf("Failed to initialize JetStream DLQ: %v", err)
			}
			pipelineOpts = append(pipelineOpts, pipeline.WithDeadLetters(queue))
			handlerOpts = append(handlerOpts, handlers.WithReadinessCheck("dlq", func(ctx context.Context) any {
				return queue.Stats(ctx)
			}))
			client = jsClient
			slog.Info("Dead letter queue enabled", slog.String("stream", natsclient.IngestDLQStream.Name))
		} else {
			c, err := natsclient.NewClient(natsCfg)
			if err != nil {
				log.Fatalf("Failed to connect to NATS: %v", err)
			}
			client = c
		}
		defer client.Drain()

		pipelineOpts = append(pipelineOpts, pipeline.WithNotifier(events.NewPublisher(client)))
		handlerOpts = append(handlerOpts, handlers.WithReadinessCheck("nats", func(context.Context) any {
			return messaging.CheckClientHealth(client)
		}))
		slog.Info("Batch notifications enabled",
			slog.String("nats_url", cfg.NATS.URL),
			slog.String("subject", messaging.SubjectIngestCompleted))
	}

	// Initialize connectors
	var connectors []connector.Connector
	if cfg.Connectors.AppFolio.Enabled {
		connectors = append(connectors, appfolio.New(appfolio.Config{
			BaseURL: cfg.Connectors.AppFolio.BaseURL,
			APIKey:  cfg.Connectors.AppFolio.APIKey,
			Timeout: cfg.Connectors.AppFolio.Timeout,
		}))
		slog.Info("Connector enabled", logging.Connector(appfolio.SourceApp), slog.String("base_url", cfg.Connectors.AppFolio.BaseURL))
	}
	registry, err := connector.NewRegistry(connectors...)
	if err != nil {
		log.Fatalf("Failed to register connectors: %v", err)
	}

	// Initialize ingest pipeline
	norm, err := normalizer.New()
	if err != nil {
		log.Fatalf("Failed to initialize normalizer: %v", err)
	}
	recorder := audit.NewRecorder(audit.WithCostPerTuple(cfg.Ingestion.CostPerTupleUSD))
	ingestPipeline := pipeline.New(store, norm, recorder, pipelineOpts...)

	ingestService := service.NewIngestService(registry, ingestPipeline, store,
		service.WithRateLimiter(rateLimiter),
		service.WithLogger(logger))

	// Initialize HTTP handlers
	handler := handlers.NewIngestHandler(ingestService, handlerOpts...)
	router := server.NewRouter(handler, logger)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Ingest service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		slog.Error("Server error", slog.String("error", err.Error()))
	}

	slog.Info("Shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("Server stopped")
}
