package repository

import (
	"context"

	"github.com/trailmesh/traceflow/internal/domain"
	"gorm.io/gorm"
)

// RoutingRepository provides read-only lookups of destination routing
// configuration.
type RoutingRepository struct {
	db *gorm.DB
}

// NewRoutingRepository creates a new RoutingRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RoutingRepository: repository instance bound to db.
func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

// GetActive retrieves the active routing config for a destination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - destination: destination identifier.
// Returns:
//   - *domain.RoutingConfig: matching config if found.
//   - error: gorm.ErrRecordNotFound if no active config exists.
func (r *RoutingRepository) GetActive(ctx context.Context, destination string) (*domain.RoutingConfig, error) {
	var cfg domain.RoutingConfig
	if err := r.db.WithContext(ctx).
		Where("destination = ? AND active = ?", destination, true).
		First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}
