// Package schemaval wraps the schema-validation capability the pipeline
// gates documents through. The schema content itself is external; the
// pipeline only consumes the list of structural errors.
package schemaval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Validator checks document structure. An empty error list means valid.
type Validator interface {
	Validate(ctx context.Context, content []byte) ([]string, error)
}

// Config holds configuration for the remote validator client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPValidator calls a remote schema-validation service.
type HTTPValidator struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPValidator creates a schema-validation service client.
// Parameters:
//   - cfg: validator service configuration.
// Returns:
//   - *HTTPValidator: initialized client.
func NewHTTPValidator(cfg *Config) *HTTPValidator {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	return &HTTPValidator{
		client:   client,
		endpoint: cfg.BaseURL + "/validate",
	}
}

type validateResponse struct {
	Errors []string `json:"errors"`
}

// Validate posts the content and returns the structural error list.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - content: raw document bytes.
// Returns:
//   - []string: structural errors; empty means valid.
//   - error: non-nil if the service itself cannot be reached.
func (v *HTTPValidator) Validate(ctx context.Context, content []byte) ([]string, error) {
	var result validateResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(content).
		SetResult(&result).
		Post(v.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call schema validator: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("schema validator returned HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return result.Errors, nil
}

// EnvelopeValidator is an in-process Validator enforcing the fixed
// envelope shape: a header with source and destination, and a body with
// an eventList of typed event objects.
type EnvelopeValidator struct{}

// NewEnvelopeValidator creates an EnvelopeValidator.
func NewEnvelopeValidator() *EnvelopeValidator {
	return &EnvelopeValidator{}
}

type envelopeShape struct {
	Header *struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	} `json:"header"`
	Body *struct {
		EventList []map[string]interface{} `json:"eventList"`
	} `json:"body"`
}

// Validate checks the envelope shape in process.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - content: raw document bytes.
// Returns:
//   - []string: structural errors; empty means valid.
//   - error: non-nil only on cancellation.
func (v *EnvelopeValidator) Validate(ctx context.Context, content []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var shape envelopeShape
	if err := json.Unmarshal(content, &shape); err != nil {
		return []string{fmt.Sprintf("document is not valid JSON: %v", err)}, nil
	}

	var errs []string
	if shape.Header == nil {
		errs = append(errs, "missing header")
	} else {
		if shape.Header.Source == "" {
			errs = append(errs, "header.source is required")
		}
		if shape.Header.Destination == "" {
			errs = append(errs, "header.destination is required")
		}
	}

	if shape.Body == nil {
		errs = append(errs, "missing body")
		return errs, nil
	}

	for i, ev := range shape.Body.EventList {
		typ, _ := ev["type"].(string)
		switch typ {
		case "ObjectEvent", "AggregationEvent":
		case "":
			errs = append(errs, fmt.Sprintf("event %d is missing type", i))
		default:
			errs = append(errs, fmt.Sprintf("event %d has unsupported type %q", i, typ))
		}
	}

	return errs, nil
}
