package document

import "testing"

const sampleDoc = `{
  "header": {"source": "S1", "destination": "D1"},
  "body": {"eventList": [
    {"type": "ObjectEvent", "epcList": ["urn:epc:id:sgtin:1"], "bizStep": "shipping", "products": ["P1"]},
    {"type": "ObjectEvent", "epcList": ["urn:epc:id:sgtin:2"], "bizStep": "shipping", "products": ["P1", "P2"]},
    {"type": "AggregationEvent", "parentID": "urn:epc:id:sscc:9", "childEPCs": ["urn:epc:id:sgtin:1"], "products": ["P2"]}
  ]}
}`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Source != "S1" {
		t.Errorf("source: got %q, want S1", p.Source)
	}
	if p.Destination != "D1" {
		t.Errorf("destination: got %q, want D1", p.Destination)
	}
	if p.ObjectEvents != 2 {
		t.Errorf("object events: got %d, want 2", p.ObjectEvents)
	}
	if p.AggregationEvents != 1 {
		t.Errorf("aggregation events: got %d, want 1", p.AggregationEvents)
	}
	if len(p.Events) != 3 {
		t.Fatalf("events: got %d, want 3", len(p.Events))
	}
	if p.PrimaryProduct != "P1" {
		t.Errorf("primary product: got %q, want P1", p.PrimaryProduct)
	}
	if len(p.Products) != 2 || p.Products[0] != "P1" || p.Products[1] != "P2" {
		t.Errorf("products: got %v, want [P1 P2]", p.Products)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "empty content", content: "   "},
		{name: "invalid JSON", content: `{"header":`},
		{name: "missing source", content: `{"header":{"destination":"D1"},"body":{"eventList":[]}}`},
		{name: "missing destination", content: `{"header":{"source":"S1"},"body":{"eventList":[]}}`},
		{
			name:    "unknown event type",
			content: `{"header":{"source":"S1","destination":"D1"},"body":{"eventList":[{"type":"TransformationEvent"}]}}`,
		},
		{
			name:    "event missing type",
			content: `{"header":{"source":"S1","destination":"D1"},"body":{"eventList":[{"epcList":[]}]}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseEmptyEventList(t *testing.T) {
	p, err := Parse([]byte(`{"header":{"source":"S1","destination":"D1"},"body":{"eventList":[]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Events) != 0 || p.ObjectEvents != 0 || p.AggregationEvents != 0 {
		t.Errorf("expected empty counts, got %+v", p)
	}
	if p.PrimaryProduct != "" {
		t.Errorf("expected no primary product, got %q", p.PrimaryProduct)
	}
}
