package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trailmesh/traceflow/internal/domain"
	"gorm.io/gorm"
)

// OperationRepository is the append-only audit ledger. It exposes no
// update or delete path; stage history for a document only ever grows.
type OperationRepository struct {
	db *gorm.DB
}

// NewOperationRepository creates a new OperationRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *OperationRepository: repository instance bound to db.
func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// Append inserts one stage attempt row. Assigns ID and timestamp if unset.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: operation record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *OperationRepository) Append(ctx context.Context, rec *domain.OperationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListByDocument retrieves the full stage history for a document, oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to query.
// Returns:
//   - []domain.OperationRecord: matching rows in insertion order.
//   - error: non-nil if the query fails.
func (r *OperationRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.OperationRecord, error) {
	var records []domain.OperationRecord
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// LatestByDocument retrieves the most recent stage attempt for a document.
// The current pipeline position is always derived from this row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to query.
// Returns:
//   - *domain.OperationRecord: latest row if any.
//   - error: gorm.ErrRecordNotFound if the document has no history.
func (r *OperationRepository) LatestByDocument(ctx context.Context, documentID string) (*domain.OperationRecord, error) {
	var rec domain.OperationRecord
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// HasSucceeded reports whether a document holds a succeeded row for stage.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to query.
//   - stage: stage to check.
// Returns:
//   - bool: true if a succeeded row exists.
//   - error: non-nil if the query fails.
func (r *OperationRepository) HasSucceeded(ctx context.Context, documentID string, stage domain.Stage) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.OperationRecord{}).
		Where("document_id = ? AND stage = ? AND outcome = ?", documentID, stage, domain.OutcomeSucceeded).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List retrieves records filtered by optional stage and outcome, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stage: stage filter; empty means all.
//   - outcome: outcome filter; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.OperationRecord: matching rows.
//   - error: non-nil if the query fails.
func (r *OperationRepository) List(ctx context.Context, stage domain.Stage, outcome domain.Outcome, limit, offset int) ([]domain.OperationRecord, error) {
	query := r.db.WithContext(ctx).Model(&domain.OperationRecord{})
	if stage != "" {
		query = query.Where("stage = ?", stage)
	}
	if outcome != "" {
		query = query.Where("outcome = ?", outcome)
	}

	var records []domain.OperationRecord
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
