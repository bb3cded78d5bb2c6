// Package index wraps the bulk document index the load engine writes
// surviving events into. Only the write surface is modeled; querying the
// index is an external concern.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result is the per-event outcome of a bulk index call, positionally
// aligned with the submitted batch.
type Result struct {
	Failed bool
	Detail string
}

// Indexer submits a batch of enriched events in one bulk operation.
// A returned error is a batch-level hard failure; per-event failures are
// reported through the Result slice.
type Indexer interface {
	BulkIndex(ctx context.Context, events []map[string]interface{}) ([]Result, error)
}

// Config holds configuration for the bulk index client.
type Config struct {
	BaseURL   string
	IndexName string
	APIKey    string
	Timeout   time.Duration
}

// HTTPIndexer talks to an Elasticsearch-compatible bulk endpoint.
type HTTPIndexer struct {
	client    *resty.Client
	endpoint  string
	indexName string
}

// NewHTTPIndexer creates a bulk index client.
// Parameters:
//   - cfg: index store configuration.
// Returns:
//   - *HTTPIndexer: initialized client.
func NewHTTPIndexer(cfg *Config) *HTTPIndexer {
	client := resty.New()
	client.SetHeader("Content-Type", "application/x-ndjson")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "ApiKey "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	return &HTTPIndexer{
		client:    client,
		endpoint:  cfg.BaseURL + "/_bulk",
		indexName: cfg.IndexName,
	}
}

type bulkItemStatus struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]bulkItemStatus `json:"items"`
}

// BulkIndex submits events as one NDJSON bulk request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - events: enriched event payloads.
// Returns:
//   - []Result: per-event outcomes aligned with events.
//   - error: non-nil on a batch-level hard failure (transport error or
//     non-success HTTP status); no per-event outcomes are available then.
func (x *HTTPIndexer) BulkIndex(ctx context.Context, events []map[string]interface{}) ([]Result, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, ev := range events {
		action := map[string]interface{}{"index": map[string]interface{}{"_index": x.indexName}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(ev); err != nil {
			return nil, fmt.Errorf("failed to encode event: %w", err)
		}
	}

	var parsed bulkResponse
	resp, err := x.client.R().
		SetContext(ctx).
		SetBody(body.Bytes()).
		SetResult(&parsed).
		Post(x.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call index store: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("index store returned HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	if len(parsed.Items) != len(events) {
		return nil, fmt.Errorf("index store returned %d outcomes for %d events", len(parsed.Items), len(events))
	}

	results := make([]Result, len(events))
	for i, item := range parsed.Items {
		// Each item is keyed by the action name ("index").
		for _, st := range item {
			if st.Status < 200 || st.Status >= 300 {
				results[i].Failed = true
				if st.Error != nil {
					results[i].Detail = fmt.Sprintf("%s: %s", st.Error.Type, st.Error.Reason)
				} else {
					results[i].Detail = fmt.Sprintf("status %d", st.Status)
				}
			}
		}
	}
	return results, nil
}
