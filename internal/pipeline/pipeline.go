// Package pipeline implements the document processing pipeline: a fixed
// linear state machine that authorizes, validates, transforms, loads,
// and routes each ingested traceability document, recording every stage
// attempt in an append-only operation ledger.
package pipeline

import (
	"context"

	"github.com/trailmesh/traceflow/internal/domain"
)

// DocumentStore persists ingested documents and their terminal status.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
}

// RuleStore provides read-only business rule lookups.
type RuleStore interface {
	ListActive(ctx context.Context, source, destination string) ([]domain.BusinessRule, error)
}

// OperationStore appends stage attempts to the audit ledger and derives
// pipeline position from it.
type OperationStore interface {
	Append(ctx context.Context, rec *domain.OperationRecord) error
	LatestByDocument(ctx context.Context, documentID string) (*domain.OperationRecord, error)
}

// HashStore is the atomic dedup ledger. Claim must be race-free across
// concurrent pipeline runs: for a given hash exactly one caller ever
// sees claimed=true.
type HashStore interface {
	Claim(ctx context.Context, hash, documentID string) (bool, error)
	Release(ctx context.Context, hash string) error
	ReleaseAll(ctx context.Context, hashes []string) error
}

// RoutingStore provides read-only routing configuration lookups.
type RoutingStore interface {
	GetActive(ctx context.Context, destination string) (*domain.RoutingConfig, error)
}

// LoadStats aggregates the per-event outcomes of one load stage run.
type LoadStats struct {
	TotalEvents       int `json:"total_events"`
	DuplicatesDropped int `json:"duplicates_dropped"`
	EventsIndexed     int `json:"events_indexed"`
	IndexFailures     int `json:"index_failures"`
}

// Result is the terminal outcome of one pipeline run.
type Result struct {
	DocumentID  string             `json:"document_id"`
	Stage       domain.Stage       `json:"stage"`
	Outcome     domain.Outcome     `json:"outcome"`
	FailureCode domain.FailureCode `json:"failure_code,omitempty"`
	ErrorDetail string             `json:"error_detail,omitempty"`
	Load        *LoadStats         `json:"load,omitempty"`
}

// Succeeded reports whether the run reached the terminal success state.
func (r *Result) Succeeded() bool {
	return r.Outcome == domain.OutcomeSucceeded && r.Stage == domain.StageRouted
}
