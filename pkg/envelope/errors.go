package envelope

import "github.com/cockroachdb/errors"

// Errors
var (
	// ErrMalformedEnvelope marks a stream whose header line is missing or not a JSON object
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrMalformedItem marks an item whose header or payload framing is broken
	ErrMalformedItem = errors.New("malformed envelope item")
	// ErrCanceled marks a serialization or deserialization aborted by its context
	ErrCanceled = errors.New("envelope operation canceled")
)

func canceled(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), ErrCanceled)
}
