package pipeline

import (
	"context"
	"fmt"

	"github.com/trailmesh/traceflow/internal/domain"
)

// Authorizer checks a document's source/destination/product combination
// against the business rule registry. Authorization is all-or-nothing: a
// single unauthorized product fails the whole document.
type Authorizer struct {
	rules RuleStore
}

// NewAuthorizer creates an Authorizer backed by the rule registry.
func NewAuthorizer(rules RuleStore) *Authorizer {
	return &Authorizer{rules: rules}
}

// Authorize validates the document metadata against active rules.
// Returns a *domain.StageError with FailureUnauthorizedCombination when
// no active rule covers the (source, destination) pair, or
// FailureUnauthorizedProduct when any referenced product is uncovered.
func (a *Authorizer) Authorize(ctx context.Context, doc *domain.Document) error {
	meta := doc.Metadata

	rules, err := a.rules.ListActive(ctx, meta.Source, meta.Destination)
	if err != nil {
		return fmt.Errorf("failed to look up rules: %w", err)
	}

	authorized := make(map[string]bool, len(rules))
	for _, rule := range rules {
		authorized[rule.Product] = true
	}

	if len(authorized) == 0 {
		return domain.NewStageError(domain.FailureUnauthorizedCombination,
			"no active rule authorizes source %q to destination %q", meta.Source, meta.Destination)
	}

	for _, product := range meta.Products {
		if !authorized[product] {
			return domain.NewStageError(domain.FailureUnauthorizedProduct,
				"product %q is not authorized between %q and %q", product, meta.Source, meta.Destination)
		}
	}

	return nil
}
