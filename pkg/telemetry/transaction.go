package telemetry

import (
	"sort"
	"time"
)

// Transaction is a finished performance trace
type Transaction struct {
	EventID        EventID           `json:"event_id"`
	Type           string            `json:"type"`
	Name           string            `json:"transaction"`
	StartTimestamp time.Time         `json:"start_timestamp"`
	Timestamp      time.Time         `json:"timestamp"`
	Release        string            `json:"release,omitempty"`
	Environment    string            `json:"environment,omitempty"`
	Contexts       map[string]any    `json:"contexts,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
	Spans          []Span            `json:"spans,omitempty"`

	// SamplingContext travels in the envelope header, not in the payload
	SamplingContext *DynamicSamplingContext `json:"-"`
}

// Span is one timed operation inside a transaction
type Span struct {
	TraceID        string    `json:"trace_id"`
	SpanID         string    `json:"span_id"`
	ParentSpanID   string    `json:"parent_span_id,omitempty"`
	Op             string    `json:"op,omitempty"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status,omitempty"`
	StartTimestamp time.Time `json:"start_timestamp"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewTransaction creates a transaction with a fresh id
func NewTransaction(name string, start, end time.Time) *Transaction {
	return &Transaction{
		EventID:        NewEventID(),
		Type:           "transaction",
		Name:           name,
		StartTimestamp: start.UTC(),
		Timestamp:      end.UTC(),
	}
}

// DynamicSamplingContext holds the trace sampling hints propagated with a transaction
type DynamicSamplingContext struct {
	items map[string]string
}

// NewDynamicSamplingContext copies items, skipping empty values
func NewDynamicSamplingContext(items map[string]string) *DynamicSamplingContext {
	dsc := &DynamicSamplingContext{items: make(map[string]string, len(items))}
	for k, v := range items {
		if v == "" {
			continue
		}
		dsc.items[k] = v
	}
	return dsc
}

// Items returns a copy of the key/value pairs
func (d *DynamicSamplingContext) Items() map[string]string {
	out := make(map[string]string, len(d.items))
	for k, v := range d.items {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order
func (d *DynamicSamplingContext) Keys() []string {
	keys := make([]string, 0, len(d.items))
	for k := range d.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *DynamicSamplingContext) Len() int {
	return len(d.items)
}
