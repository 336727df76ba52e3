package envelope

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Envelope header keys
const (
	KeyEventID = "event_id"
	KeySdk     = "sdk"
	KeySentAt  = "sent_at"
	KeyTrace   = "trace"
)

// Envelope is a header and an ordered sequence of items. Neither changes
// after construction; WithItem returns a new envelope.
type Envelope struct {
	header *Map
	items  []*Item

	closeOnce sync.Once
	closeErr  error
}

// New creates an envelope. The envelope takes ownership of the items.
func New(header *Map, items []*Item) *Envelope {
	if header == nil {
		header = NewMap()
	}
	owned := make([]*Item, len(items))
	copy(owned, items)
	return &Envelope{header: header, items: owned}
}

// Header returns the envelope header. Callers must not modify it.
func (e *Envelope) Header() *Map {
	return e.header
}

// Items returns the items in order
func (e *Envelope) Items() []*Item {
	items := make([]*Item, len(e.items))
	copy(items, e.items)
	return items
}

// Len returns the number of items
func (e *Envelope) Len() int {
	return len(e.items)
}

// TryGetEventID returns the event_id header when it holds a valid identifier
func (e *Envelope) TryGetEventID() (uuid.UUID, bool) {
	s, ok := e.header.GetString(KeyEventID)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// WithItem returns a new envelope with the same header and item appended
func (e *Envelope) WithItem(item *Item) *Envelope {
	items := make([]*Item, 0, len(e.items)+1)
	items = append(items, e.items...)
	items = append(items, item)
	return &Envelope{header: e.header, items: items}
}

// Close releases every item. It is safe to call more than once.
func (e *Envelope) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		for _, item := range e.items {
			if err := item.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}
