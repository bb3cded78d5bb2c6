package domain

import "time"

// Stage is one step of the fixed document pipeline.
type Stage string

const (
	StageIngested    Stage = "ingested"
	StageAuthorized  Stage = "authorized"
	StageValidated   Stage = "validated"
	StageTransformed Stage = "transformed"
	StageLoaded      Stage = "loaded"
	StageRouted      Stage = "routed"
)

// stageOrder fixes the pipeline topology. Linear, no branching.
var stageOrder = []Stage{
	StageIngested,
	StageAuthorized,
	StageValidated,
	StageTransformed,
	StageLoaded,
	StageRouted,
}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Next returns the stage following s, or empty if s is terminal or unknown.
func (s Stage) Next() Stage {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return ""
}

// Outcome represents the result of one stage attempt.
// Values include OutcomeSucceeded and OutcomeFailed.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// OperationRecord is one row per stage attempt per document. Rows are
// append-only: never mutated, never deleted. The ledger is the system of
// record for "has this document reached stage X"; current stage is always
// derived from the latest row, never held as mutable state.
type OperationRecord struct {
	ID                string    `gorm:"type:text;primaryKey" json:"id"`
	DocumentID        string    `gorm:"type:text;not null;index:idx_operations_document" json:"document_id"`
	Stage             Stage     `gorm:"type:text;not null;index:idx_operations_stage" json:"stage"`
	Outcome           Outcome   `gorm:"type:text;not null;index:idx_operations_outcome" json:"outcome"`
	ObjectEvents      int       `json:"object_events"`
	AggregationEvents int       `json:"aggregation_events"`
	EventsIndexed     int       `json:"events_indexed,omitempty"`
	DuplicatesDropped int       `json:"duplicates_dropped,omitempty"`
	FailureCode       string    `gorm:"type:text" json:"failure_code,omitempty"`
	ErrorDetail       string    `gorm:"type:text" json:"error_detail,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName returns the database table name for OperationRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (OperationRecord) TableName() string {
	return "operation_records"
}
