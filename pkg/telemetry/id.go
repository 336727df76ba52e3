package telemetry

import (
	"encoding/hex"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// EventID identifies an event, transaction or feedback
type EventID uuid.UUID

// NilEventID is the empty identifier
var NilEventID EventID

// NewEventID returns a random identifier
func NewEventID() EventID {
	return EventID(uuid.New())
}

// ParseEventID accepts the 32 hex digit form as well as the dashed form
func ParseEventID(s string) (EventID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilEventID, errors.Wrapf(err, "parse event id %q", s)
	}
	return EventID(id), nil
}

func (id EventID) String() string {
	return hex.EncodeToString(id[:])
}

func (id EventID) IsZero() bool {
	return id == NilEventID
}

func (id EventID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EventID) UnmarshalText(text []byte) error {
	parsed, err := ParseEventID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
