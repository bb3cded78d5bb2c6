package pipeline

import (
	"context"
	"testing"

	"github.com/trailmesh/traceflow/internal/domain"
)

const orchestratorDoc = `{
  "header": {"source": "acme", "destination": "globex"},
  "body": {"eventList": [
    {"type": "ObjectEvent", "products": ["widget"], "epc": "urn:epc:1"},
    {"type": "ObjectEvent", "products": ["widget"], "epc": "urn:epc:2"},
    {"type": "AggregationEvent", "products": ["widget"], "parent": "urn:epc:pallet:1"}
  ]}
}`

// orchestratorFixture wires an Orchestrator over fakes primed for a
// fully successful run; individual tests break one capability at a time.
type orchestratorFixture struct {
	docs      *fakeDocumentStore
	ops       *fakeOperationStore
	hashes    *fakeHashStore
	indexer   *fakeIndexer
	forwarder *fakeForwarder
	notifier  *fakeNotifier
	rules     *fakeRuleStore
	routing   *fakeRoutingStore
	validator *fakeValidator
	converter *fakeConverter
	orch      *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		docs:      newFakeDocumentStore(),
		ops:       &fakeOperationStore{},
		hashes:    newFakeHashStore(),
		indexer:   &fakeIndexer{},
		forwarder: &fakeForwarder{},
		notifier:  &fakeNotifier{},
		rules: &fakeRuleStore{rules: []domain.BusinessRule{
			{ID: "r1", Source: "acme", Destination: "globex", Product: "widget", Status: domain.RuleStatusActive},
		}},
		routing: &fakeRoutingStore{configs: map[string]*domain.RoutingConfig{
			"globex": {
				ID:            "rc-1",
				Destination:   "globex",
				CredentialRef: "globex-api-key",
				EndpointURL:   "https://globex.example.com/ingest",
				Active:        true,
			},
		}},
		validator: &fakeValidator{},
		converter: &fakeConverter{},
	}

	log := testLogger()
	f.orch = NewOrchestrator(
		f.docs,
		f.ops,
		NewAuthorizer(f.rules),
		NewStructuralValidator(f.validator),
		NewTransformer(f.converter),
		NewLoader(f.hashes, f.indexer, nil, log, nil),
		NewRouter(f.routing, &fakeResolver{secrets: map[string]string{"globex-api-key": "s3cret"}}, f.forwarder),
		f.notifier,
		log,
	)
	return f
}

func (f *orchestratorFixture) stages() []string {
	f.ops.mu.Lock()
	defer f.ops.mu.Unlock()
	out := make([]string, len(f.ops.records))
	for i, rec := range f.ops.records {
		out[i] = string(rec.Stage) + ":" + string(rec.Outcome)
	}
	return out
}

func assertStages(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ledger rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ledger rows = %v, want %v", got, want)
		}
	}
}

func TestIngestFullRun(t *testing.T) {
	f := newOrchestratorFixture()

	result, err := f.orch.Ingest(context.Background(), "shipment.json", "raw/shipment.json", []byte(orchestratorDoc))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if !result.Succeeded() {
		t.Fatalf("run did not succeed: %+v", result)
	}
	if result.Load == nil || result.Load.EventsIndexed != 3 {
		t.Errorf("Load stats = %+v, want 3 events indexed", result.Load)
	}

	assertStages(t, f.stages(), []string{
		"ingested:succeeded",
		"authorized:succeeded",
		"validated:succeeded",
		"transformed:succeeded",
		"loaded:succeeded",
		"routed:succeeded",
	})

	doc, err := f.docs.GetByID(context.Background(), result.DocumentID)
	if err != nil {
		t.Fatalf("document not persisted: %v", err)
	}
	if doc.Status != domain.DocumentStatusRouted {
		t.Errorf("document status = %s, want %s", doc.Status, domain.DocumentStatusRouted)
	}
	if doc.Metadata.ObjectEvents != 2 || doc.Metadata.AggregationEvents != 1 {
		t.Errorf("metadata counts = %d/%d, want 2/1", doc.Metadata.ObjectEvents, doc.Metadata.AggregationEvents)
	}
	if len(f.notifier.calls) != 0 {
		t.Errorf("notifier called %d times on success, want 0", len(f.notifier.calls))
	}
	if len(f.forwarder.received) != 1 {
		t.Errorf("forwarded %d documents, want 1", len(f.forwarder.received))
	}
}

func TestProcessShortCircuitsOnAuthorizationFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.rules.rules = nil

	result, err := f.orch.Ingest(context.Background(), "shipment.json", "", []byte(orchestratorDoc))
	if err != nil {
		t.Fatalf("Ingest returned infrastructure error: %v", err)
	}

	if result.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome)
	}
	if result.Stage != domain.StageAuthorized {
		t.Errorf("failed stage = %s, want %s", result.Stage, domain.StageAuthorized)
	}
	if result.FailureCode != domain.FailureUnauthorizedCombination {
		t.Errorf("failure code = %s, want %s", result.FailureCode, domain.FailureUnauthorizedCombination)
	}

	// Nothing past the failed stage ran.
	assertStages(t, f.stages(), []string{
		"ingested:succeeded",
		"authorized:failed",
	})
	if f.indexer.indexed() != 0 {
		t.Errorf("events indexed = %d, want 0", f.indexer.indexed())
	}
	if len(f.forwarder.received) != 0 {
		t.Errorf("forwarded %d documents, want 0", len(f.forwarder.received))
	}

	if len(f.notifier.calls) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(f.notifier.calls))
	}

	doc, _ := f.docs.GetByID(context.Background(), result.DocumentID)
	if doc.Status != domain.DocumentStatusFailed {
		t.Errorf("document status = %s, want %s", doc.Status, domain.DocumentStatusFailed)
	}
}

func TestProcessFailsOnSchemaErrors(t *testing.T) {
	f := newOrchestratorFixture()
	f.validator.errs = []string{"eventList[0]: missing epc", "header: unknown field"}

	result, err := f.orch.Ingest(context.Background(), "shipment.json", "", []byte(orchestratorDoc))
	if err != nil {
		t.Fatalf("Ingest returned infrastructure error: %v", err)
	}

	if result.Stage != domain.StageValidated || result.FailureCode != domain.FailureSchemaInvalid {
		t.Errorf("result = %s/%s, want %s/%s",
			result.Stage, result.FailureCode, domain.StageValidated, domain.FailureSchemaInvalid)
	}
	assertStages(t, f.stages(), []string{
		"ingested:succeeded",
		"authorized:succeeded",
		"validated:failed",
	})
}

func TestReprocessDropsDuplicates(t *testing.T) {
	f := newOrchestratorFixture()

	first, err := f.orch.Ingest(context.Background(), "shipment.json", "", []byte(orchestratorDoc))
	if err != nil || !first.Succeeded() {
		t.Fatalf("first run: result=%+v err=%v", first, err)
	}

	second, err := f.orch.Reprocess(context.Background(), first.DocumentID)
	if err != nil {
		t.Fatalf("Reprocess failed: %v", err)
	}

	if !second.Succeeded() {
		t.Fatalf("reprocess did not succeed: %+v", second)
	}
	if second.Load.DuplicatesDropped != 3 || second.Load.EventsIndexed != 0 {
		t.Errorf("reprocess load stats = %+v, want 3 duplicates and 0 indexed", second.Load)
	}
	if f.indexer.indexed() != 3 {
		t.Errorf("events indexed across both runs = %d, want 3", f.indexer.indexed())
	}
}

func TestProcessCancelledContext(t *testing.T) {
	f := newOrchestratorFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.orch.Ingest(ctx, "shipment.json", "", []byte(orchestratorDoc))
	if err != nil {
		t.Fatalf("Ingest returned infrastructure error: %v", err)
	}

	if result.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome)
	}
	if result.FailureCode != domain.FailureCancelled {
		t.Errorf("failure code = %s, want %s", result.FailureCode, domain.FailureCancelled)
	}

	// The failure row and notification land despite the dead context.
	rows := f.stages()
	if len(rows) == 0 || rows[len(rows)-1] != "authorized:failed" {
		t.Errorf("ledger rows = %v, want trailing authorized:failed", rows)
	}
	if len(f.notifier.calls) != 1 {
		t.Errorf("notifier called %d times, want 1", len(f.notifier.calls))
	}
}

func TestCurrentStageDerivedFromLedger(t *testing.T) {
	f := newOrchestratorFixture()
	f.validator.errs = []string{"body: eventList must not be empty"}

	result, err := f.orch.Ingest(context.Background(), "shipment.json", "", []byte(orchestratorDoc))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	stage, outcome, err := f.orch.CurrentStage(context.Background(), result.DocumentID)
	if err != nil {
		t.Fatalf("CurrentStage failed: %v", err)
	}
	if stage != domain.StageValidated || outcome != domain.OutcomeFailed {
		t.Errorf("position = %s/%s, want %s/failed", stage, outcome, domain.StageValidated)
	}
}

func TestIngestRejectsMalformedDocument(t *testing.T) {
	f := newOrchestratorFixture()

	_, err := f.orch.Ingest(context.Background(), "broken.json", "", []byte(`{"header":{}}`))
	if err == nil {
		t.Fatal("expected ingest error for document without source")
	}
	if rows := f.stages(); len(rows) != 0 {
		t.Errorf("ledger rows = %v, want none for rejected ingest", rows)
	}
}
