package repository

import (
	"context"

	"github.com/trailmesh/traceflow/internal/domain"
	"gorm.io/gorm"
)

// RuleRepository provides read-only lookups against the business rule
// registry. The pipeline never writes rules; remediation happens through
// the registry's own surface.
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new RuleRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RuleRepository: repository instance bound to db.
func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListActive retrieves all active rules between a source and destination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source location identifier.
//   - destination: destination location identifier.
// Returns:
//   - []domain.BusinessRule: matching active rules.
//   - error: non-nil if the query fails.
func (r *RuleRepository) ListActive(ctx context.Context, source, destination string) ([]domain.BusinessRule, error) {
	var rules []domain.BusinessRule
	if err := r.db.WithContext(ctx).
		Where("source = ? AND destination = ? AND status = ?", source, destination, domain.RuleStatusActive).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// GetActive retrieves the active rule for an exact (source, destination, product) triple.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source location identifier.
//   - destination: destination location identifier.
//   - product: product identifier.
// Returns:
//   - *domain.BusinessRule: matching rule if found.
//   - error: gorm.ErrRecordNotFound if no active rule covers the triple.
func (r *RuleRepository) GetActive(ctx context.Context, source, destination, product string) (*domain.BusinessRule, error) {
	var rule domain.BusinessRule
	if err := r.db.WithContext(ctx).
		Where("source = ? AND destination = ? AND product = ? AND status = ?",
			source, destination, product, domain.RuleStatusActive).
		First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}
