package idgen

import (
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerator_StrictlyIncreasing(t *testing.T) {
	g := New()
	prev := g.Next()
	for i := 0; i < 1000; i++ {
		id := g.Next()
		assert.Equal(t, 1, ksuid.Compare(id, prev))
		prev = id
	}
}

func TestGenerator_Observe(t *testing.T) {
	future, err := ksuid.NewRandomWithTime(time.Now().Add(time.Hour))
	assert.NoError(t, err)

	g := New()
	g.Observe(future)

	assert.Equal(t, 1, ksuid.Compare(g.Next(), future))
}
