package envelope

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// trackedStream counts how often it is closed
type trackedStream struct {
	*bytes.Reader
	mu     sync.Mutex
	closes int
}

func (s *trackedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *trackedStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// trackedContent hands out trackedStreams over data
type trackedContent struct {
	data    []byte
	streams []*trackedStream
}

func (c *trackedContent) Open() (io.ReadCloser, error) {
	s := &trackedStream{Reader: bytes.NewReader(c.data)}
	c.streams = append(c.streams, s)
	return s, nil
}

// cancelingWriter cancels its context after a number of writes
type cancelingWriter struct {
	bytes.Buffer
	after  int
	writes int
	cancel context.CancelFunc
}

func (w *cancelingWriter) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	w.writes++
	if w.writes == w.after {
		w.cancel()
	}
	return n, err
}

// failingWriter fails every write
type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func testItem(itemType, payload string) *Item {
	h := NewMap()
	h.Set(ItemKeyType, String(itemType))
	return NewItem(h, BytesPayload(payload))
}
