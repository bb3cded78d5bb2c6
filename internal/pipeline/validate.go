package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/schemaval"
)

// StructuralValidator gates documents on the external schema-validation
// capability. It is purely a gate and produces no derived state.
type StructuralValidator struct {
	validator schemaval.Validator
}

// NewStructuralValidator creates a StructuralValidator.
func NewStructuralValidator(v schemaval.Validator) *StructuralValidator {
	return &StructuralValidator{validator: v}
}

// Validate runs the schema capability over the raw content. A non-empty
// error list fails with FailureSchemaInvalid carrying the concatenated
// list.
func (s *StructuralValidator) Validate(ctx context.Context, doc *domain.Document) error {
	errs, err := s.validator.Validate(ctx, []byte(doc.RawContent))
	if err != nil {
		return fmt.Errorf("schema validation unavailable: %w", err)
	}
	if len(errs) > 0 {
		return domain.NewStageError(domain.FailureSchemaInvalid,
			"document failed schema validation: %s", strings.Join(errs, "; "))
	}
	return nil
}
