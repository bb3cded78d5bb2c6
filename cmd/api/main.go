package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trailmesh/traceflow/internal/api"
	"github.com/trailmesh/traceflow/internal/config"
	"github.com/trailmesh/traceflow/internal/convert"
	"github.com/trailmesh/traceflow/internal/credential"
	"github.com/trailmesh/traceflow/internal/index"
	"github.com/trailmesh/traceflow/internal/logger"
	"github.com/trailmesh/traceflow/internal/notify"
	"github.com/trailmesh/traceflow/internal/pipeline"
	"github.com/trailmesh/traceflow/internal/repository"
	"github.com/trailmesh/traceflow/internal/schemaval"
	"github.com/trailmesh/traceflow/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "traceflow-api",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	documentRepo := repository.NewDocumentRepository(db)
	operationRepo := repository.NewOperationRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	hashRepo := repository.NewEventHashRepository(db)
	routingRepo := repository.NewRoutingRepository(db)

	// Initialize object storage when configured
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		objectStorage, err = storage.NewStorage(&storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize object storage")
		}
	}

	// Initialize external capabilities
	var converter convert.Converter
	if cfg.Conversion.Provider == "local" {
		converter = convert.NewLocalNormalizer()
	} else {
		converter = convert.NewHTTPConverter(&convert.Config{
			BaseURL: cfg.Conversion.BaseURL,
			APIKey:  cfg.Conversion.APIKey,
			Timeout: cfg.Conversion.Timeout,
		})
	}

	var validator schemaval.Validator
	if cfg.Validator.Provider == "envelope" {
		validator = schemaval.NewEnvelopeValidator()
	} else {
		validator = schemaval.NewHTTPValidator(&schemaval.Config{
			BaseURL: cfg.Validator.BaseURL,
			APIKey:  cfg.Validator.APIKey,
			Timeout: cfg.Validator.Timeout,
		})
	}

	indexer := index.NewHTTPIndexer(&index.Config{
		BaseURL:   cfg.Index.BaseURL,
		IndexName: cfg.Index.IndexName,
		APIKey:    cfg.Index.APIKey,
		Timeout:   cfg.Index.Timeout,
	})

	resolver, err := credential.NewResolver(cfg.Credential.Provider, cfg.Credential.FilePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize credential resolver")
	}

	var notifier notify.Notifier
	if cfg.Notifier.Provider == "webhook" && cfg.Notifier.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(&notify.Config{
			WebhookURL: cfg.Notifier.WebhookURL,
			Timeout:    cfg.Notifier.Timeout,
		}, appLogger)
	} else {
		notifier = notify.NewLogNotifier(appLogger)
	}

	// Assemble the pipeline
	orchestrator := pipeline.NewOrchestrator(
		documentRepo,
		operationRepo,
		pipeline.NewAuthorizer(ruleRepo),
		pipeline.NewStructuralValidator(validator),
		pipeline.NewTransformer(converter),
		pipeline.NewLoader(hashRepo, indexer, objectStorage, appLogger, &pipeline.LoaderConfig{
			Workers: cfg.Pipeline.Workers,
		}),
		pipeline.NewRouter(routingRepo, resolver, pipeline.NewHTTPForwarder(0)),
		notifier,
		appLogger,
	)

	// Setup router
	router := api.SetupRouter(orchestrator, documentRepo, operationRepo, objectStorage, cfg, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
