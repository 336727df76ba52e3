// Package idgen hands out KSUIDs that sort in the order they were generated.
package idgen

import (
	"sync"

	"github.com/segmentio/ksuid"
)

// Generator produces strictly increasing KSUIDs. KSUID timestamps have one
// second resolution, so ids generated within the same second are derived from
// the previous one instead of being random.
type Generator struct {
	mu   sync.Mutex
	last ksuid.KSUID
}

// New creates a generator
func New() *Generator {
	return &Generator{}
}

// Next returns an id greater than every id returned before
func (g *Generator) Next() ksuid.KSUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ksuid.New()
	if ksuid.Compare(id, g.last) <= 0 {
		id = g.last.Next()
	}
	g.last = id
	return id
}

// Observe moves the generator past id, e.g. after reopening existing storage
func (g *Generator) Observe(id ksuid.KSUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ksuid.Compare(id, g.last) > 0 {
		g.last = id
	}
}
