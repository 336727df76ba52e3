package envelope

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ssargent/parcel/pkg/clock"
)

// writeStep is one atomic write. Executors decide whether anything happens
// between steps.
type writeStep func(w io.Writer) error

type executor interface {
	run(w io.Writer, steps []writeStep) error
}

// blocking runs every step in order
type blocking struct{}

func (blocking) run(w io.Writer, steps []writeStep) error {
	for _, step := range steps {
		if err := step(w); err != nil {
			return err
		}
	}
	return nil
}

// cooperative checks the context before every step and stops writing once it
// is done
type cooperative struct {
	ctx context.Context
}

func (c cooperative) run(w io.Writer, steps []writeStep) error {
	for _, step := range steps {
		if err := c.ctx.Err(); err != nil {
			return canceled(err, "serialize envelope")
		}
		if err := step(w); err != nil {
			return err
		}
	}
	return nil
}

// Persistent is implemented by destinations that know whether they are durable storage
type Persistent interface {
	Persistent() bool
}

// IsPersistent reports whether w is a persistent file. Envelopes written to a
// persistent destination are not stamped with sent_at.
func IsPersistent(w io.Writer) bool {
	switch d := w.(type) {
	case Persistent:
		return d.Persistent()
	case *os.File:
		fi, err := d.Stat()
		return err == nil && fi.Mode().IsRegular()
	}
	return false
}

// PersistentBuffer is an in-memory buffer headed for durable storage
type PersistentBuffer struct {
	bytes.Buffer
}

// Persistent always reports true
func (*PersistentBuffer) Persistent() bool { return true }

type persistentWriter struct {
	io.Writer
}

func (persistentWriter) Persistent() bool { return true }

func (p persistentWriter) Flush() error {
	if f, ok := p.Writer.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// MarkPersistent wraps w so that IsPersistent reports true, e.g. a bufio.Writer over a file
func MarkPersistent(w io.Writer) io.Writer {
	return persistentWriter{Writer: w}
}

type flusher interface {
	Flush() error
}

type serializeOptions struct {
	logger zerolog.Logger
	clock  clock.Clock
}

// SerializeOption configures Serialize and SerializeContext
type SerializeOption func(*serializeOptions)

// WithLogger sets the logger used to report header values that cannot be encoded
func WithLogger(logger zerolog.Logger) SerializeOption {
	return func(o *serializeOptions) {
		o.logger = logger
	}
}

// WithClock sets the time source for sent_at
func WithClock(c clock.Clock) SerializeOption {
	return func(o *serializeOptions) {
		o.clock = c
	}
}

func newSerializeOptions(opts []SerializeOption) serializeOptions {
	o := serializeOptions{logger: zerolog.Nop(), clock: clock.NewSystem()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Serialize writes the envelope to w
func (e *Envelope) Serialize(w io.Writer, opts ...SerializeOption) error {
	return e.write(blocking{}, w, opts)
}

// SerializeContext writes the envelope to w, checking ctx before every write.
// Bytes already written when ctx is canceled are not rolled back.
func (e *Envelope) SerializeContext(ctx context.Context, w io.Writer, opts ...SerializeOption) error {
	return e.write(cooperative{ctx: ctx}, w, opts)
}

func (e *Envelope) write(exec executor, w io.Writer, opts []SerializeOption) error {
	return exec.run(w, e.steps(w, newSerializeOptions(opts)))
}

func (e *Envelope) steps(w io.Writer, o serializeOptions) []writeStep {
	persistent := IsPersistent(w)
	steps := []writeStep{
		func(w io.Writer) error {
			header := e.header
			if !persistent {
				header = header.Clone()
				header.Set(KeySentAt, Time(o.clock.Now()))
			}
			line := append(encodeHeader(header, o.logger), '\n')
			_, err := w.Write(line)
			return err
		},
	}
	for _, item := range e.items {
		steps = append(steps, item.steps(o.logger)...)
		steps = append(steps, writeNewline)
	}
	steps = append(steps, func(w io.Writer) error {
		if f, ok := w.(flusher); ok {
			return f.Flush()
		}
		return nil
	})
	return steps
}

func writeNewline(w io.Writer) error {
	_, err := w.Write([]byte{'\n'})
	return err
}

// encodeHeader renders m as a JSON object. Entries that cannot be encoded are
// logged and left out.
func encodeHeader(m *Map, logger zerolog.Logger) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	m.Range(func(k string, v Value) bool {
		b, err := v.MarshalJSON()
		if err != nil {
			logger.Warn().Err(err).Str("key", k).Msg("dropping header entry that cannot be encoded")
			return true
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(k)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(b)
		return true
	})
	buf.WriteByte('}')
	return buf.Bytes()
}
