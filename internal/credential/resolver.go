// Package credential resolves credential references named by routing
// configuration. Retrieval mechanics are deliberately simple; the
// pipeline only depends on the Resolver interface.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound indicates the referenced credential does not exist.
var ErrNotFound = errors.New("credential not found")

// Resolver resolves a credential reference to its secret value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvResolver resolves references from environment variables. A
// reference like "acme-api-key" maps to TRACEFLOW_CRED_ACME_API_KEY.
type EnvResolver struct {
	prefix string
}

// NewEnvResolver creates an EnvResolver.
// Parameters:
//   - prefix: environment variable prefix; defaults to TRACEFLOW_CRED_.
// Returns:
//   - *EnvResolver: initialized resolver.
func NewEnvResolver(prefix string) *EnvResolver {
	if prefix == "" {
		prefix = "TRACEFLOW_CRED_"
	}
	return &EnvResolver{prefix: prefix}
}

// Resolve looks up the environment variable for ref.
func (r *EnvResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := r.prefix + normalizeRef(ref)
	if val := os.Getenv(key); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// normalizeRef converts a reference to environment variable form.
func normalizeRef(ref string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, ref)
	return mapped
}

// FileResolver resolves references from a JSON file of ref→secret pairs,
// loaded lazily on first use.
type FileResolver struct {
	path string

	mu      sync.Mutex
	loaded  bool
	secrets map[string]string
}

// NewFileResolver creates a FileResolver for the given file path.
func NewFileResolver(path string) *FileResolver {
	return &FileResolver{path: path}
}

// Resolve looks up ref in the credential file.
func (r *FileResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		data, err := os.ReadFile(r.path)
		if err != nil {
			return "", fmt.Errorf("failed to read credential file: %w", err)
		}
		if err := json.Unmarshal(data, &r.secrets); err != nil {
			return "", fmt.Errorf("failed to decode credential file: %w", err)
		}
		r.loaded = true
	}

	if val, ok := r.secrets[ref]; ok && val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// NewResolver creates a Resolver based on the configured provider.
// Parameters:
//   - provider: "env" or "file".
//   - pathOrPrefix: file path for "file", env prefix for "env".
// Returns:
//   - Resolver: initialized resolver implementation.
//   - error: non-nil for an unknown provider.
func NewResolver(provider, pathOrPrefix string) (Resolver, error) {
	switch provider {
	case "", "env":
		return NewEnvResolver(pathOrPrefix), nil
	case "file":
		return NewFileResolver(pathOrPrefix), nil
	default:
		return nil, fmt.Errorf("unknown credential provider %q", provider)
	}
}
