package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/trailmesh/traceflow/internal/credential"
	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/index"
	"github.com/trailmesh/traceflow/internal/logger"
	"gorm.io/gorm"
)

// Shared in-memory fakes for pipeline tests.

type fakeRuleStore struct {
	rules []domain.BusinessRule
	err   error
}

func (f *fakeRuleStore) ListActive(ctx context.Context, source, destination string) ([]domain.BusinessRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.BusinessRule
	for _, r := range f.rules {
		if r.Source == source && r.Destination == destination && r.Status == domain.RuleStatusActive {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeOperationStore struct {
	mu      sync.Mutex
	records []domain.OperationRecord
}

func (f *fakeOperationStore) Append(ctx context.Context, rec *domain.OperationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeOperationStore) LatestByDocument(ctx context.Context, documentID string) (*domain.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].DocumentID == documentID {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// fakeHashStore mirrors the atomic claim semantics of the real store: a
// single mutex-guarded check-and-insert, so concurrent claims race
// safely and exactly one wins.
type fakeHashStore struct {
	mu       sync.Mutex
	claims   map[string]string
	claimErr error
}

func newFakeHashStore() *fakeHashStore {
	return &fakeHashStore{claims: make(map[string]string)}
}

func (f *fakeHashStore) Claim(ctx context.Context, hash, documentID string) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.claims[hash]; ok {
		return false, nil
	}
	f.claims[hash] = documentID
	return true, nil
}

func (f *fakeHashStore) Release(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, hash)
	return nil
}

func (f *fakeHashStore) ReleaseAll(ctx context.Context, hashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range hashes {
		delete(f.claims, h)
	}
	return nil
}

func (f *fakeHashStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims)
}

type fakeRoutingStore struct {
	configs map[string]*domain.RoutingConfig
}

func (f *fakeRoutingStore) GetActive(ctx context.Context, destination string) (*domain.RoutingConfig, error) {
	if cfg, ok := f.configs[destination]; ok && cfg.Active {
		return cfg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[string]*domain.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*domain.Document)}
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		return doc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDocumentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

// fakeConverter applies transform to the content, or returns err.
type fakeConverter struct {
	transform func([]byte) []byte
	err       error
}

func (f *fakeConverter) Convert(ctx context.Context, content []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.transform != nil {
		return f.transform(content), nil
	}
	return content, nil
}

type fakeValidator struct {
	errs []string
	err  error
}

func (f *fakeValidator) Validate(ctx context.Context, content []byte) ([]string, error) {
	return f.errs, f.err
}

// fakeIndexer records submitted batches and fails events whose position
// is listed in failAt.
type fakeIndexer struct {
	mu       sync.Mutex
	batches  [][]map[string]interface{}
	failAt   map[int]bool
	batchErr error
}

func (f *fakeIndexer) BulkIndex(ctx context.Context, events []map[string]interface{}) ([]index.Result, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	f.mu.Lock()
	f.batches = append(f.batches, events)
	f.mu.Unlock()

	results := make([]index.Result, len(events))
	for i := range events {
		if f.failAt[i] {
			results[i] = index.Result{Failed: true, Detail: "mapping conflict"}
		}
	}
	return results, nil
}

func (f *fakeIndexer) indexed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, b := range f.batches {
		total += len(b)
	}
	return total
}

type fakeResolver struct {
	secrets map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if s, ok := f.secrets[ref]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %s", credential.ErrNotFound, ref)
}

type fakeForwarder struct {
	status   int
	err      error
	received [][]byte
}

func (f *fakeForwarder) Forward(ctx context.Context, endpointURL, secret string, content []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.received = append(f.received, content)
	if f.status == 0 {
		return 200, nil
	}
	return f.status, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(ctx context.Context, documentID string, stage domain.Stage, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, string(stage))
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text"})
}
