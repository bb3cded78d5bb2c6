package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvResolver(t *testing.T) {
	t.Setenv("TRACEFLOW_CRED_ACME_API_KEY", "s3cret")

	r := NewEnvResolver("")

	secret, err := r.Resolve(context.Background(), "acme-api-key")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if secret != "s3cret" {
		t.Errorf("secret = %q, want s3cret", secret)
	}

	_, err = r.Resolve(context.Background(), "missing-key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEnvResolverCustomPrefix(t *testing.T) {
	t.Setenv("CUSTOM_GLOBEX_TOKEN", "tok")

	r := NewEnvResolver("CUSTOM_")
	secret, err := r.Resolve(context.Background(), "globex.token")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if secret != "tok" {
		t.Errorf("secret = %q, want tok", secret)
	}
}

func TestFileResolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	content := `{"acme-api-key": "s3cret", "empty-key": ""}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	r := NewFileResolver(path)

	secret, err := r.Resolve(context.Background(), "acme-api-key")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if secret != "s3cret" {
		t.Errorf("secret = %q, want s3cret", secret)
	}

	// Absent and empty references both count as unavailable.
	for _, ref := range []string{"missing-key", "empty-key"} {
		if _, err := r.Resolve(context.Background(), ref); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrNotFound", ref, err)
		}
	}
}

func TestFileResolverMissingFile(t *testing.T) {
	r := NewFileResolver(filepath.Join(t.TempDir(), "nope.json"))
	_, err := r.Resolve(context.Background(), "any")
	if err == nil {
		t.Fatal("expected error for missing credential file")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("infrastructure error must not be reported as a missing credential")
	}
}

func TestNewResolver(t *testing.T) {
	if _, err := NewResolver("env", ""); err != nil {
		t.Errorf("env provider: %v", err)
	}
	if _, err := NewResolver("file", "/etc/traceflow/creds.json"); err != nil {
		t.Errorf("file provider: %v", err)
	}
	if _, err := NewResolver("vault", ""); err == nil {
		t.Error("expected error for unknown provider")
	}
}
