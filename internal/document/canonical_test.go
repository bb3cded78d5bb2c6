package document

import "testing"

// TestCanonicalHashStable verifies that the same event always produces the same hash
func TestCanonicalHashStable(t *testing.T) {
	raw := []byte(`{"type":"ObjectEvent","epcList":["urn:epc:id:sgtin:1"],"bizStep":"shipping"}`)

	h1, err := CanonicalHash(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := CanonicalHash(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h1 != h2 {
		t.Errorf("hash mismatch: first=%s, second=%s", h1, h2)
	}
	// SHA-256 hex digest
	if len(h1) != 64 {
		t.Errorf("invalid hash length: got %d, want 64", len(h1))
	}
}

// TestCanonicalHashNormalization verifies whitespace and key order do not affect the hash
func TestCanonicalHashNormalization(t *testing.T) {
	testCases := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{
			name: "whitespace stripped",
			a:    `{"type":"ObjectEvent","bizStep":"shipping"}`,
			b:    "{\n  \"type\": \"ObjectEvent\",\n  \"bizStep\": \"shipping\"\n}",
			same: true,
		},
		{
			name: "key order normalized",
			a:    `{"type":"ObjectEvent","bizStep":"shipping"}`,
			b:    `{"bizStep":"shipping","type":"ObjectEvent"}`,
			same: true,
		},
		{
			name: "nested objects normalized",
			a:    `{"type":"ObjectEvent","readPoint":{"id":"loc-1","sub":"a"}}`,
			b:    `{"readPoint":{"sub":"a","id":"loc-1"},"type":"ObjectEvent"}`,
			same: true,
		},
		{
			name: "numbers preserved verbatim",
			a:    `{"type":"ObjectEvent","quantity":10}`,
			b:    `{"type":"ObjectEvent","quantity":10.0}`,
			same: false,
		},
		{
			name: "different content differs",
			a:    `{"type":"ObjectEvent","bizStep":"shipping"}`,
			b:    `{"type":"ObjectEvent","bizStep":"receiving"}`,
			same: false,
		},
		{
			name: "array order significant",
			a:    `{"type":"ObjectEvent","epcList":["a","b"]}`,
			b:    `{"type":"ObjectEvent","epcList":["b","a"]}`,
			same: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ha, err := CanonicalHash([]byte(tc.a))
			if err != nil {
				t.Fatalf("unexpected error for a: %v", err)
			}
			hb, err := CanonicalHash([]byte(tc.b))
			if err != nil {
				t.Fatalf("unexpected error for b: %v", err)
			}
			if tc.same && ha != hb {
				t.Errorf("expected equal hashes, got %s and %s", ha, hb)
			}
			if !tc.same && ha == hb {
				t.Errorf("expected different hashes, both %s", ha)
			}
		})
	}
}

func TestCanonicalHashInvalidJSON(t *testing.T) {
	if _, err := CanonicalHash([]byte(`{"type":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}
