package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/trailmesh/traceflow/internal/credential"
	"github.com/trailmesh/traceflow/internal/domain"
	"gorm.io/gorm"
)

// Forwarder delivers the original raw document to a destination
// endpoint and reports the upstream HTTP status.
type Forwarder interface {
	Forward(ctx context.Context, endpointURL, secret string, content []byte) (int, error)
}

// HTTPForwarder forwards documents over HTTP.
type HTTPForwarder struct {
	client *resty.Client
}

// NewHTTPForwarder creates an HTTPForwarder.
func NewHTTPForwarder(timeout time.Duration) *HTTPForwarder {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)
	return &HTTPForwarder{client: client}
}

// Forward posts content to endpointURL authenticated with secret.
func (f *HTTPForwarder) Forward(ctx context.Context, endpointURL, secret string, content []byte) (int, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+secret).
		SetBody(content).
		Post(endpointURL)
	if err != nil {
		return 0, fmt.Errorf("failed to forward document: %w", err)
	}
	return resp.StatusCode(), nil
}

// Router resolves the destination routing configuration and forwards the
// original raw document. The router always ships the untouched original,
// never the normalized carrier.
type Router struct {
	routing   RoutingStore
	creds     credential.Resolver
	forwarder Forwarder
}

// NewRouter creates a Router.
func NewRouter(routing RoutingStore, creds credential.Resolver, forwarder Forwarder) *Router {
	return &Router{routing: routing, creds: creds, forwarder: forwarder}
}

// Route forwards the document to its destination endpoint.
func (r *Router) Route(ctx context.Context, doc *domain.Document) error {
	cfg, err := r.routing.GetActive(ctx, doc.Metadata.Destination)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewStageError(domain.FailureNoRoutingConfig,
				"no active routing config for destination %q", doc.Metadata.Destination)
		}
		return fmt.Errorf("failed to look up routing config: %w", err)
	}

	secret, err := r.creds.Resolve(ctx, cfg.CredentialRef)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return domain.WrapStageError(domain.FailureCredentialUnavailable, err,
				"credential %q is not available", cfg.CredentialRef)
		}
		return fmt.Errorf("failed to resolve credential: %w", err)
	}

	status, err := r.forwarder.Forward(ctx, cfg.EndpointURL, secret, []byte(doc.RawContent))
	if err != nil {
		return domain.WrapStageError(domain.FailureRoutingRejected, err,
			"destination endpoint unreachable")
	}
	if status < 200 || status >= 300 {
		return domain.NewStageError(domain.FailureRoutingRejected,
			"destination endpoint returned status %d", status)
	}

	return nil
}
