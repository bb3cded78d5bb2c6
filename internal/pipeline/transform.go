package pipeline

import (
	"context"
	"errors"

	"github.com/trailmesh/traceflow/internal/convert"
	"github.com/trailmesh/traceflow/internal/document"
	"github.com/trailmesh/traceflow/internal/domain"
)

// Transformer normalizes document format through the external conversion
// capability and reconciles event counts before and after conversion.
// The count check is the only integrity signal that a lossy conversion
// occurred, so it is mandatory.
type Transformer struct {
	converter convert.Converter
}

// NewTransformer creates a Transformer.
func NewTransformer(c convert.Converter) *Transformer {
	return &Transformer{converter: c}
}

// Transform converts the raw content and returns the normalized bytes
// that carry the remaining stages. The original raw content stays
// untouched on the document for the router.
func (t *Transformer) Transform(ctx context.Context, doc *domain.Document) ([]byte, error) {
	normalized, err := t.converter.Convert(ctx, []byte(doc.RawContent))
	if err != nil {
		var convErr *convert.ConversionError
		if errors.As(err, &convErr) {
			return nil, domain.WrapStageError(domain.FailureConversionFailed, err,
				"conversion service rejected document with status %d", convErr.StatusCode)
		}
		return nil, domain.WrapStageError(domain.FailureConversionFailed, err, "conversion service unreachable")
	}

	parsed, err := document.Parse(normalized)
	if err != nil {
		return nil, domain.WrapStageError(domain.FailureConversionFailed, err,
			"conversion produced an undecodable document")
	}

	meta := doc.Metadata
	if parsed.ObjectEvents != meta.ObjectEvents || parsed.AggregationEvents != meta.AggregationEvents {
		return nil, domain.NewStageError(domain.FailureEventCountMismatch,
			"event counts changed during conversion: object %d->%d, aggregation %d->%d",
			meta.ObjectEvents, parsed.ObjectEvents, meta.AggregationEvents, parsed.AggregationEvents)
	}

	return normalized, nil
}
