package telemetry

import "time"

// Discard reasons
const (
	ReasonQueueOverflow    = "queue_overflow"
	ReasonRateLimitBackoff = "ratelimit_backoff"
	ReasonNetworkError     = "network_error"
	ReasonSampleRate       = "sample_rate"
	ReasonBeforeSend       = "before_send"
	ReasonCacheOverflow    = "cache_overflow"
)

// ClientReport summarizes events the producer discarded before sending
type ClientReport struct {
	Timestamp       time.Time        `json:"timestamp"`
	DiscardedEvents []DiscardedEvent `json:"discarded_events"`
}

// DiscardedEvent counts discards of one category for one reason
type DiscardedEvent struct {
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// NewClientReport creates an empty report stamped with t
func NewClientReport(t time.Time) *ClientReport {
	return &ClientReport{Timestamp: t.UTC(), DiscardedEvents: []DiscardedEvent{}}
}

// Record adds quantity to the counter for reason and category
func (r *ClientReport) Record(reason, category string, quantity int) {
	for i := range r.DiscardedEvents {
		d := &r.DiscardedEvents[i]
		if d.Reason == reason && d.Category == category {
			d.Quantity += quantity
			return
		}
	}
	r.DiscardedEvents = append(r.DiscardedEvents, DiscardedEvent{Reason: reason, Category: category, Quantity: quantity})
}
