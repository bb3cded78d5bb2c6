package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

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
		ServiceName: "traceflow-ingest",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	filePath := flag.String("file", "", "Path to a document file to ingest")
	storageKey := flag.String("key", "", "Object storage key of a document to ingest")
	name := flag.String("name", "", "Document name; defaults to the file or key name")
	reprocessID := flag.String("reprocess", "", "Re-run the pipeline for an existing document ID")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" && *storageKey == "" && *reprocessID == "" {
		appLogger.Fatal("One of -file, -key or -reprocess is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
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

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// Run one pipeline pass
	var result *pipeline.Result
	switch {
	case *reprocessID != "":
		result, err = orchestrator.Reprocess(ctx, *reprocessID)

	case *filePath != "":
		content, readErr := os.ReadFile(*filePath)
		if readErr != nil {
			appLogger.WithError(readErr).Fatal("Failed to read document file")
		}
		docName := *name
		if docName == "" {
			docName = filepath.Base(*filePath)
		}
		result, err = orchestrator.Ingest(ctx, docName, "", content)

	default:
		if objectStorage == nil {
			appLogger.Fatal("Object storage is not configured; -key requires storage.enabled")
		}
		reader, dlErr := objectStorage.Download(ctx, *storageKey)
		if dlErr != nil {
			appLogger.WithError(dlErr).Fatal("Failed to download document from storage")
		}
		content, readErr := io.ReadAll(reader)
		reader.Close()
		if readErr != nil {
			appLogger.WithError(readErr).Fatal("Failed to read document from storage")
		}
		docName := *name
		if docName == "" {
			docName = filepath.Base(*storageKey)
		}
		result, err = orchestrator.Ingest(ctx, docName, *storageKey, content)
	}

	if err != nil {
		appLogger.WithError(err).Fatal("Pipeline run could not start")
	}

	fields := logger.Fields{
		"document_id": result.DocumentID,
		"stage":       string(result.Stage),
		"outcome":     string(result.Outcome),
	}
	if result.Load != nil {
		fields["events_indexed"] = result.Load.EventsIndexed
		fields["duplicates_dropped"] = result.Load.DuplicatesDropped
	}

	if result.Succeeded() {
		appLogger.WithFields(fields).Info("Pipeline run completed")
	} else {
		fields["failure_code"] = string(result.FailureCode)
		appLogger.WithFields(fields).Error("Pipeline run failed")
		os.Exit(1)
	}
}
