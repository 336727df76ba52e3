package envelope

import (
	"bufio"
	"context"
	"io"

	"github.com/cockroachdb/errors"
)

// Deserialize reads an envelope from r until the end of the stream
func Deserialize(r io.Reader) (*Envelope, error) {
	return DeserializeContext(context.Background(), r)
}

// DeserializeContext reads an envelope, checking ctx between items
func DeserializeContext(ctx context.Context, r io.Reader) (*Envelope, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	line, err := readLine(br)
	if err != nil {
		return nil, errors.Wrap(err, "read envelope header")
	}
	if len(line) == 0 {
		return nil, errors.Mark(errors.New("missing envelope header"), ErrMalformedEnvelope)
	}
	header, err := ParseMap(line)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse envelope header"), ErrMalformedEnvelope)
	}
	header.Delete(KeySentAt)

	var items []*Item
	for {
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			closeItems(items)
			return nil, errors.Wrap(err, "read envelope item")
		}
		item, err := DeserializeItemContext(ctx, br)
		if err != nil {
			closeItems(items)
			return nil, errors.Wrapf(err, "item %d", len(items))
		}
		items = append(items, item)
	}

	return New(header, items), nil
}

func closeItems(items []*Item) {
	for _, item := range items {
		_ = item.Close()
	}
}
