package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/parcel/pkg/clock"
	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/storage"
)

// ContentTypeEnvelope is the media type of the envelope wire format
const ContentTypeEnvelope = "application/x-sentry-envelope"

// DefaultMaxEnvelopeBytes caps request bodies when the config leaves it unset
const DefaultMaxEnvelopeBytes = 20 << 20

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// IngestResponse is returned after an envelope is spooled
type IngestResponse struct {
	ID      string `json:"id"`
	EventID string `json:"event_id,omitempty"`
	Items   int    `json:"items"`
}

// EnvelopeSummary describes one spooled envelope
type EnvelopeSummary struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Size       int       `json:"size"`
	EventID    string    `json:"event_id,omitempty"`
	Items      []string  `json:"items"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind             string
	Port             int
	APIKey           string
	MaxEnvelopeBytes int64
	Logger           zerolog.Logger
	Clock            clock.Clock // stamps sent_at on envelopes served back to clients
}

// ISpool is the storage the server reads and writes envelopes through
type ISpool interface {
	Enqueue(env *envelope.Envelope) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (*envelope.Envelope, error)
	List() ([]storage.Entry, error)
	Delete(id ksuid.KSUID) error
	Len() (int, error)
	FindByEventID(eventID uuid.UUID) ([]ksuid.KSUID, error)
}
