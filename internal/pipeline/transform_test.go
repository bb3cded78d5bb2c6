package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/trailmesh/traceflow/internal/convert"
	"github.com/trailmesh/traceflow/internal/domain"
)

const transformDoc = `{
  "header": {"source": "acme", "destination": "globex"},
  "body": {"eventList": [
    {"type": "ObjectEvent", "products": ["widget"], "epc": "urn:epc:1"},
    {"type": "ObjectEvent", "products": ["widget"], "epc": "urn:epc:2"},
    {"type": "AggregationEvent", "products": ["widget"], "parent": "urn:epc:pallet:1"}
  ]}
}`

func transformTestDocument() *domain.Document {
	return &domain.Document{
		ID:         "doc-1",
		RawContent: transformDoc,
		Metadata: domain.DocumentMetadata{
			Source:            "acme",
			Destination:       "globex",
			ObjectEvents:      2,
			AggregationEvents: 1,
			Products:          domain.StringArray{"widget"},
		},
	}
}

func TestTransformPassThrough(t *testing.T) {
	tr := NewTransformer(&fakeConverter{})
	doc := transformTestDocument()

	normalized, err := tr.Transform(context.Background(), doc)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(normalized) == 0 {
		t.Fatal("expected normalized content")
	}
	if doc.RawContent != transformDoc {
		t.Error("raw content must not be mutated by transformation")
	}
}

func TestTransformConversionRejected(t *testing.T) {
	tr := NewTransformer(&fakeConverter{
		err: &convert.ConversionError{StatusCode: 422, Detail: "unsupported dialect"},
	})

	_, err := tr.Transform(context.Background(), transformTestDocument())
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	if got := domain.CodeOf(err); got != domain.FailureConversionFailed {
		t.Errorf("failure code = %s, want %s", got, domain.FailureConversionFailed)
	}
}

func TestTransformUndecodableOutput(t *testing.T) {
	tr := NewTransformer(&fakeConverter{
		transform: func([]byte) []byte { return []byte("<xml>not json</xml>") },
	})

	_, err := tr.Transform(context.Background(), transformTestDocument())
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	if got := domain.CodeOf(err); got != domain.FailureConversionFailed {
		t.Errorf("failure code = %s, want %s", got, domain.FailureConversionFailed)
	}
}

func TestTransformEventCountMismatch(t *testing.T) {
	// The converter silently drops the aggregation event.
	dropLast := func(content []byte) []byte {
		idx := bytes.LastIndex(content, []byte(`,
    {"type": "AggregationEvent"`))
		out := append([]byte{}, content[:idx]...)
		return append(out, []byte("]}\n}")...)
	}

	tr := NewTransformer(&fakeConverter{transform: dropLast})

	_, err := tr.Transform(context.Background(), transformTestDocument())
	if err == nil {
		t.Fatal("expected event count mismatch")
	}
	if got := domain.CodeOf(err); got != domain.FailureEventCountMismatch {
		t.Errorf("failure code = %s, want %s", got, domain.FailureEventCountMismatch)
	}
}
