package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trailmesh/traceflow/internal/document"
	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/logger"
	"github.com/trailmesh/traceflow/internal/notify"
)

// Orchestrator drives a document through the fixed stage sequence.
// Stages run strictly in order; the first failure short-circuits the run
// into the terminal failed state and no later stage executes. The
// orchestrator never auto-retries: reprocessing is a new run started by
// the caller, and idempotency comes from the dedup engine, not from
// resuming.
type Orchestrator struct {
	documents   DocumentStore
	operations  OperationStore
	authorizer  *Authorizer
	validator   *StructuralValidator
	transformer *Transformer
	loader      *Loader
	router      *Router
	notifier    notify.Notifier
	logger      *logger.Logger
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(
	documents DocumentStore,
	operations OperationStore,
	authorizer *Authorizer,
	validator *StructuralValidator,
	transformer *Transformer,
	loader *Loader,
	router *Router,
	notifier notify.Notifier,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		documents:   documents,
		operations:  operations,
		authorizer:  authorizer,
		validator:   validator,
		transformer: transformer,
		loader:      loader,
		router:      router,
		notifier:    notifier,
		logger:      log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (o *Orchestrator) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return o.logger
}

// Ingest registers a new document and runs the full pipeline over it.
// Metadata is derived exactly once here and carried unchanged through
// every stage.
func (o *Orchestrator) Ingest(ctx context.Context, name, storageKey string, content []byte) (*Result, error) {
	parsed, err := document.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest document %q: %w", name, err)
	}

	doc := &domain.Document{
		ID:         uuid.New().String(),
		Name:       name,
		StorageKey: storageKey,
		RawContent: string(content),
		Metadata: domain.DocumentMetadata{
			Source:            parsed.Source,
			Destination:       parsed.Destination,
			PrimaryProduct:    parsed.PrimaryProduct,
			ObjectEvents:      parsed.ObjectEvents,
			AggregationEvents: parsed.AggregationEvents,
			Products:          domain.StringArray(parsed.Products),
		},
		Status:    domain.DocumentStatusReceived,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := o.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist document %q: %w", name, err)
	}

	if err := o.appendRecord(ctx, doc, domain.StageIngested, nil, nil); err != nil {
		return nil, err
	}

	return o.Process(ctx, doc)
}

// Reprocess starts a fresh pipeline run for a previously ingested
// document. Dedup state is untouched, so events indexed by an earlier
// run surface as duplicates rather than being indexed twice.
func (o *Orchestrator) Reprocess(ctx context.Context, documentID string) (*Result, error) {
	doc, err := o.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", documentID, err)
	}
	return o.Process(ctx, doc)
}

// Process runs the ordered stages over an already ingested document.
func (o *Orchestrator) Process(ctx context.Context, doc *domain.Document) (*Result, error) {
	ctx = logger.SetDocumentID(ctx, doc.ID)

	var normalized []byte
	var loadStats *LoadStats

	steps := []struct {
		stage domain.Stage
		fn    func(context.Context) error
	}{
		{domain.StageAuthorized, func(ctx context.Context) error {
			return o.authorizer.Authorize(ctx, doc)
		}},
		{domain.StageValidated, func(ctx context.Context) error {
			return o.validator.Validate(ctx, doc)
		}},
		{domain.StageTransformed, func(ctx context.Context) error {
			var err error
			normalized, err = o.transformer.Transform(ctx, doc)
			return err
		}},
		{domain.StageLoaded, func(ctx context.Context) error {
			var err error
			loadStats, err = o.loader.Load(ctx, doc, normalized)
			return err
		}},
		{domain.StageRouted, func(ctx context.Context) error {
			return o.router.Route(ctx, doc)
		}},
	}

	for _, step := range steps {
		start := time.Now()
		err := ctx.Err()
		if err == nil {
			err = step.fn(ctx)
		}

		if err != nil {
			return o.fail(ctx, doc, step.stage, loadStats, err)
		}

		if recErr := o.appendRecord(ctx, doc, step.stage, loadStats, nil); recErr != nil {
			return nil, recErr
		}

		logger.With(logger.Fields{
			logger.FieldStage:      string(step.stage),
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Info(ctx, "Stage completed")
	}

	if err := o.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusRouted); err != nil {
		o.log(ctx).WithError(err).Error("Failed to record terminal document status")
	}

	return &Result{
		DocumentID: doc.ID,
		Stage:      domain.StageRouted,
		Outcome:    domain.OutcomeSucceeded,
		Load:       loadStats,
	}, nil
}

// CurrentStage derives a document's pipeline position from the latest
// ledger row. There is no mutable "current stage" field anywhere.
func (o *Orchestrator) CurrentStage(ctx context.Context, documentID string) (domain.Stage, domain.Outcome, error) {
	rec, err := o.operations.LatestByDocument(ctx, documentID)
	if err != nil {
		return "", "", err
	}
	return rec.Stage, rec.Outcome, nil
}

// fail records the terminal failure for the run: a failed ledger row,
// a notification, and the failed document status.
func (o *Orchestrator) fail(ctx context.Context, doc *domain.Document, stage domain.Stage, loadStats *LoadStats, cause error) (*Result, error) {
	code := domain.CodeOf(cause)
	detail := cause.Error()

	// The ledger row and compensating writes must land even when the
	// run's context is already cancelled.
	recCtx := ctx
	if ctx.Err() != nil {
		recCtx = context.Background()
	}

	if err := o.appendRecord(recCtx, doc, stage, loadStats, cause); err != nil {
		o.log(ctx).WithError(err).Error("Failed to append failure record")
	}
	if err := o.documents.UpdateStatus(recCtx, doc.ID, domain.DocumentStatusFailed); err != nil {
		o.log(ctx).WithError(err).Error("Failed to record terminal document status")
	}

	o.notifier.Notify(recCtx, doc.ID, stage, detail)

	o.log(ctx).WithFields(logger.Fields{
		logger.FieldStage: string(stage),
		"failure_code":    string(code),
	}).WithError(cause).Warn("Pipeline run failed")

	return &Result{
		DocumentID:  doc.ID,
		Stage:       stage,
		Outcome:     domain.OutcomeFailed,
		FailureCode: code,
		ErrorDetail: detail,
		Load:        loadStats,
	}, nil
}

// appendRecord writes one ledger row for a stage attempt.
func (o *Orchestrator) appendRecord(ctx context.Context, doc *domain.Document, stage domain.Stage, loadStats *LoadStats, cause error) error {
	rec := &domain.OperationRecord{
		DocumentID:        doc.ID,
		Stage:             stage,
		Outcome:           domain.OutcomeSucceeded,
		ObjectEvents:      doc.Metadata.ObjectEvents,
		AggregationEvents: doc.Metadata.AggregationEvents,
	}
	if stage == domain.StageLoaded && loadStats != nil {
		rec.EventsIndexed = loadStats.EventsIndexed
		rec.DuplicatesDropped = loadStats.DuplicatesDropped
	}
	if cause != nil {
		rec.Outcome = domain.OutcomeFailed
		rec.FailureCode = string(domain.CodeOf(cause))
		rec.ErrorDetail = cause.Error()
	}

	if err := o.operations.Append(ctx, rec); err != nil {
		return fmt.Errorf("failed to append operation record for stage %s: %w", stage, err)
	}
	return nil
}
