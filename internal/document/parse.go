package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event type discriminators used in the eventList.
const (
	EventTypeObject      = "ObjectEvent"
	EventTypeAggregation = "AggregationEvent"
)

// Event is one traceability record inside a document: an object movement
// or an aggregation of objects. Raw preserves the exact bytes from the
// document; Fields is the decoded form used for enrichment.
type Event struct {
	Type   string
	Raw    json.RawMessage
	Fields map[string]interface{}
}

// Products returns the product identifiers referenced by the event.
func (e *Event) Products() []string {
	raw, ok := e.Fields["products"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Parsed is the decoded view of a document body plus the envelope facts
// the pipeline derives from it.
type Parsed struct {
	Source            string
	Destination       string
	Events            []Event
	ObjectEvents      int
	AggregationEvents int
	// Products holds the distinct per-event product identifiers in first-seen order.
	Products []string
	// PrimaryProduct is the first product referenced by the first event.
	PrimaryProduct string
}

type envelope struct {
	Header struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	} `json:"header"`
	Body struct {
		EventList []json.RawMessage `json:"eventList"`
	} `json:"body"`
}

// Parse decodes a document and derives its metadata. It is called once
// at ingestion; the result is carried unchanged through the pipeline.
func Parse(content []byte) (*Parsed, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, fmt.Errorf("document content is empty")
	}

	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if env.Header.Source == "" {
		return nil, fmt.Errorf("document header is missing source")
	}
	if env.Header.Destination == "" {
		return nil, fmt.Errorf("document header is missing destination")
	}

	p := &Parsed{
		Source:      env.Header.Source,
		Destination: env.Header.Destination,
	}

	seen := make(map[string]bool)
	for i, raw := range env.Body.EventList {
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", i, err)
		}
		typ, _ := fields["type"].(string)

		ev := Event{Type: typ, Raw: raw, Fields: fields}
		switch typ {
		case EventTypeObject:
			p.ObjectEvents++
		case EventTypeAggregation:
			p.AggregationEvents++
		default:
			return nil, fmt.Errorf("event %d has unknown type %q", i, typ)
		}

		for _, product := range ev.Products() {
			if !seen[product] {
				seen[product] = true
				p.Products = append(p.Products, product)
			}
		}
		p.Events = append(p.Events, ev)
	}

	if len(p.Products) > 0 {
		p.PrimaryProduct = p.Products[0]
	}
	return p, nil
}
