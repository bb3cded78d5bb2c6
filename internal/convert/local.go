package convert

import (
	"bytes"
	"context"
	"encoding/json"
)

// LocalNormalizer is an in-process Converter for environments without a
// conversion service. It re-serializes the document compactly with
// stable key order, which is the same normalization the remote service
// applies to well-formed input.
type LocalNormalizer struct{}

// NewLocalNormalizer creates a LocalNormalizer.
func NewLocalNormalizer() *LocalNormalizer {
	return &LocalNormalizer{}
}

// Convert normalizes content in process.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - content: raw document bytes.
// Returns:
//   - []byte: normalized document content.
//   - error: *ConversionError if the content cannot be decoded.
func (n *LocalNormalizer) Convert(ctx context.Context, content []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, &ConversionError{StatusCode: 422, Detail: err.Error()}
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, &ConversionError{StatusCode: 500, Detail: err.Error()}
	}
	return out, nil
}
