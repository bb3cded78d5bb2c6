package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trailmesh/traceflow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventHashRepository is the deduplication ledger. Claim is the only
// write path and is a single conditional insert: the unique index on
// hash decides the winner at the storage layer, so two concurrent
// pipeline runs can never both claim the same hash. A query-then-insert
// sequence must not be reintroduced here.
type EventHashRepository struct {
	db *gorm.DB
}

// NewEventHashRepository creates a new EventHashRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *EventHashRepository: repository instance bound to db.
func NewEventHashRepository(db *gorm.DB) *EventHashRepository {
	return &EventHashRepository{db: db}
}

// Claim atomically registers hash as seen. Exactly one caller ever
// observes claimed=true for a given hash; every other caller, including
// concurrent ones, observes claimed=false.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: canonical content hash of the event.
//   - documentID: document whose run is attempting the claim.
// Returns:
//   - bool: true if this call inserted the row (first seen).
//   - error: non-nil if the insert fails for a reason other than conflict.
func (r *EventHashRepository) Claim(ctx context.Context, hash, documentID string) (bool, error) {
	row := &domain.EventHash{
		ID:         uuid.New().String(),
		Hash:       hash,
		DocumentID: documentID,
		InsertedAt: time.Now(),
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(row)
	if tx.Error != nil {
		return false, fmt.Errorf("failed to claim event hash: %w", tx.Error)
	}

	// RowsAffected is 1 when this insert won and 0 when the hash already
	// existed. Those are the only two outcomes.
	return tx.RowsAffected == 1, nil
}

// Release removes a claim so a future run can re-attempt the event. Only
// called after the claim's index write failed; a claim is durable once
// indexing succeeded.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: canonical content hash to release.
// Returns:
//   - error: non-nil if the delete fails.
func (r *EventHashRepository) Release(ctx context.Context, hash string) error {
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).Delete(&domain.EventHash{}).Error; err != nil {
		return fmt.Errorf("failed to release event hash: %w", err)
	}
	return nil
}

// ReleaseAll removes a set of claims in one statement. Used when the
// whole index batch failed or the load stage was cancelled mid-flight.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hashes: canonical content hashes to release.
// Returns:
//   - error: non-nil if the delete fails.
func (r *EventHashRepository) ReleaseAll(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("hash IN ?", hashes).Delete(&domain.EventHash{}).Error; err != nil {
		return fmt.Errorf("failed to release event hashes: %w", err)
	}
	return nil
}

// Exists checks whether a hash has been claimed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: canonical content hash to look up.
// Returns:
//   - bool: true if a claim row exists.
//   - error: non-nil if the lookup fails.
func (r *EventHashRepository) Exists(ctx context.Context, hash string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.EventHash{}).Where("hash = ?", hash).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByDocument counts the claims currently held by a document.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to count claims for.
// Returns:
//   - int64: number of claim rows.
//   - error: non-nil if the query fails.
func (r *EventHashRepository) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.EventHash{}).Where("document_id = ?", documentID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
