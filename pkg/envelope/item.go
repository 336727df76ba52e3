package envelope

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Item header keys
const (
	ItemKeyType           = "type"
	ItemKeyLength         = "length"
	ItemKeyFilename       = "filename"
	ItemKeyContentType    = "content_type"
	ItemKeyAttachmentType = "attachment_type"
)

// Item types
const (
	TypeEvent        = "event"
	TypeFeedback     = "user_report"
	TypeTransaction  = "transaction"
	TypeSession      = "session"
	TypeClientReport = "client_report"
	TypeAttachment   = "attachment"
)

// Payload is the body of an item
type Payload interface {
	// Bytes renders the payload. Stream payloads can only be rendered once.
	Bytes() ([]byte, error)
	// Close releases any resource the payload owns
	Close() error
}

// JSONPayload encodes a value with encoding/json when the item is written
type JSONPayload struct {
	Value any
}

func (p JSONPayload) Bytes() ([]byte, error) {
	return json.Marshal(p.Value)
}

func (JSONPayload) Close() error { return nil }

// BytesPayload is a payload already in wire form
type BytesPayload []byte

func (p BytesPayload) Bytes() ([]byte, error) {
	return p, nil
}

func (BytesPayload) Close() error { return nil }

// StreamPayload owns a readable stream, typically attachment content
type StreamPayload struct {
	r io.ReadCloser
}

// NewStreamPayload takes ownership of r
func NewStreamPayload(r io.ReadCloser) *StreamPayload {
	return &StreamPayload{r: r}
}

func (p *StreamPayload) Bytes() ([]byte, error) {
	return io.ReadAll(p.r)
}

func (p *StreamPayload) Close() error {
	return p.r.Close()
}

// Item is one header and payload pair inside an envelope
type Item struct {
	header  *Map
	payload Payload

	mu       sync.Mutex
	rendered []byte
	renderOK bool

	closeOnce sync.Once
	closeErr  error
}

// NewItem creates an item. The item owns payload and releases it on Close.
func NewItem(header *Map, payload Payload) *Item {
	if header == nil {
		header = NewMap()
	}
	if payload == nil {
		payload = BytesPayload(nil)
	}
	return &Item{header: header, payload: payload}
}

// Header returns the item header. Callers must not modify it.
func (it *Item) Header() *Map {
	return it.header
}

// Type returns the item type, or "" when absent
func (it *Item) Type() string {
	t, _ := it.header.GetString(ItemKeyType)
	return t
}

// Payload returns the item payload
func (it *Item) Payload() Payload {
	return it.payload
}

// PayloadBytes renders the payload once and caches the result
func (it *Item) PayloadBytes() ([]byte, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.renderOK {
		return it.rendered, nil
	}
	b, err := it.payload.Bytes()
	if err != nil {
		return nil, errors.Wrapf(err, "render %s payload", it.Type())
	}
	it.rendered = b
	it.renderOK = true
	return b, nil
}

// Serialize writes the item header line followed by the payload
func (it *Item) Serialize(w io.Writer, logger zerolog.Logger) error {
	return blocking{}.run(w, it.steps(logger))
}

// SerializeContext is Serialize with cancellation between the header and the payload
func (it *Item) SerializeContext(ctx context.Context, w io.Writer, logger zerolog.Logger) error {
	return cooperative{ctx: ctx}.run(w, it.steps(logger))
}

func (it *Item) steps(logger zerolog.Logger) []writeStep {
	var payload []byte
	return []writeStep{
		func(w io.Writer) error {
			b, err := it.PayloadBytes()
			if err != nil {
				return err
			}
			payload = b
			header := it.header.Clone()
			header.Set(ItemKeyLength, Integer(int64(len(payload))))
			line := encodeHeader(header, logger)
			line = append(line, '\n')
			_, err = w.Write(line)
			return err
		},
		func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		},
	}
}

// Close releases the payload. Calling it more than once is safe.
func (it *Item) Close() error {
	it.closeOnce.Do(func() {
		it.closeErr = it.payload.Close()
	})
	return it.closeErr
}

// DeserializeItem reads one item from r
func DeserializeItem(r *bufio.Reader) (*Item, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, errors.Mark(errors.New("missing item header"), ErrMalformedItem)
	}
	header, err := ParseMap(line)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse item header"), ErrMalformedItem)
	}

	var payload []byte
	if lv, ok := header.Get(ItemKeyLength); ok {
		n, ok := lv.AsInteger()
		if !ok || n < 0 {
			return nil, errors.Mark(errors.Newf("invalid item length %v", lv), ErrMalformedItem)
		}
		// The buffer grows with the bytes received, not with the declared length.
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, r, n); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errors.Mark(errors.Wrapf(err, "item payload shorter than %d bytes", n), ErrMalformedItem)
			}
			return nil, err
		}
		payload = buf.Bytes()
		if b, err := r.Peek(1); err == nil && b[0] == '\n' {
			_, _ = r.ReadByte()
		}
	} else {
		payload, err = readLine(r)
		if err != nil {
			return nil, err
		}
	}

	return NewItem(header, BytesPayload(payload)), nil
}

// DeserializeItemContext checks ctx before reading the item
func DeserializeItemContext(ctx context.Context, r *bufio.Reader) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err, "deserialize item")
	}
	return DeserializeItem(r)
}

// readLine returns the bytes up to the next newline, without it. End of
// stream terminates the line.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line, nil
}
