// Package storage spools envelopes in pebble until they are handed off.
package storage

import (
	"bytes"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/parcel/pkg/clock"
	"github.com/ssargent/parcel/pkg/codec"
	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/idgen"
)

// ErrNotFound is returned for ids that are not in the spool
var ErrNotFound = errors.New("envelope not found in spool")

var (
	keyPrefix = []byte("envelope/")
	keyLimit  = []byte("envelope0") // '/' + 1
)

// Config holds configuration for the spool
type Config struct {
	Dir    string         // pebble directory
	Sync   bool           // fsync every write
	Logger zerolog.Logger // reports header values dropped while encoding
	Clock  clock.Clock    // stamps the received time of each record
}

// Entry describes one spooled envelope
type Entry struct {
	ID         ksuid.KSUID
	ReceivedAt time.Time
	Size       int // envelope bytes, without the record header
}

// Spool is a FIFO of serialized envelopes keyed by KSUID
type Spool struct {
	db        *pebble.DB
	ids       *idgen.Generator
	codec     *codec.RecordCodec
	writeOpts *pebble.WriteOptions
	logger    zerolog.Logger
}

// Open opens or creates the spool at config.Dir
func Open(config Config) (*Spool, error) {
	db, err := pebble.Open(config.Dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open spool %s", config.Dir)
	}

	c := config.Clock
	if c == nil {
		c = clock.NewSystem()
	}

	s := &Spool{
		db:        db,
		ids:       idgen.New(),
		codec:     codec.NewRecordCodec(c.Now),
		writeOpts: pebble.NoSync,
		logger:    config.Logger,
	}
	if config.Sync {
		s.writeOpts = pebble.Sync
	}

	last, ok, err := s.lastID()
	if err != nil {
		db.Close()
		return nil, err
	}
	if ok {
		s.ids.Observe(last)
	}
	return s, nil
}

func envelopeKey(id ksuid.KSUID) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(ksuid.Nil))
	key = append(key, keyPrefix...)
	return append(key, id.Bytes()...)
}

func idFromKey(key []byte) (ksuid.KSUID, error) {
	return ksuid.FromBytes(bytes.TrimPrefix(key, keyPrefix))
}

func (s *Spool) iter() (*pebble.Iterator, error) {
	return s.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyLimit})
}

// Enqueue serializes env and appends it to the spool. The stored bytes never
// contain sent_at.
func (s *Spool) Enqueue(env *envelope.Envelope) (ksuid.KSUID, error) {
	var buf envelope.PersistentBuffer
	if err := env.Serialize(&buf, envelope.WithLogger(s.logger)); err != nil {
		return ksuid.Nil, errors.Wrap(err, "encode envelope")
	}

	record, err := s.codec.Encode(buf.Bytes())
	if err != nil {
		return ksuid.Nil, err
	}

	id := s.ids.Next()
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(envelopeKey(id), record, nil); err != nil {
		return ksuid.Nil, err
	}
	if eventID, ok := env.TryGetEventID(); ok {
		if err := batch.Set(eventKey(eventID, id), nil, nil); err != nil {
			return ksuid.Nil, err
		}
	}
	if err := batch.Commit(s.writeOpts); err != nil {
		return ksuid.Nil, errors.Wrap(err, "spool envelope")
	}
	return id, nil
}

// Raw returns the stored envelope bytes after checking the record checksum
func (s *Spool) Raw(id ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(envelopeKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.Mark(errors.Wrap(err, id.String()), ErrNotFound)
		}
		return nil, err
	}
	defer closer.Close()

	record, err := s.codec.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "spooled envelope %s", id)
	}
	out := make([]byte, len(record.Payload))
	copy(out, record.Payload)
	return out, nil
}

// Get decodes a spooled envelope. The caller owns the returned envelope.
func (s *Spool) Get(id ksuid.KSUID) (*envelope.Envelope, error) {
	data, err := s.Raw(id)
	if err != nil {
		return nil, err
	}
	env, err := envelope.Deserialize(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode spooled envelope %s", id)
	}
	return env, nil
}

// Peek returns the oldest spooled envelope without removing it
func (s *Spool) Peek() (ksuid.KSUID, *envelope.Envelope, error) {
	it, err := s.iter()
	if err != nil {
		return ksuid.Nil, nil, err
	}
	defer it.Close()

	if !it.First() {
		if err := it.Error(); err != nil {
			return ksuid.Nil, nil, err
		}
		return ksuid.Nil, nil, ErrNotFound
	}
	id, err := idFromKey(it.Key())
	if err != nil {
		return ksuid.Nil, nil, errors.Wrap(err, "corrupt spool key")
	}
	record, err := s.codec.Decode(it.Value())
	if err != nil {
		return id, nil, errors.Wrapf(err, "spooled envelope %s", id)
	}
	env, err := envelope.Deserialize(bytes.NewReader(record.Payload))
	if err != nil {
		return id, nil, errors.Wrapf(err, "decode spooled envelope %s", id)
	}
	return id, env, nil
}

// List returns every spooled entry, oldest first
func (s *Spool) List() ([]Entry, error) {
	it, err := s.iter()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []Entry
	for it.First(); it.Valid(); it.Next() {
		id, err := idFromKey(it.Key())
		if err != nil {
			return nil, errors.Wrap(err, "corrupt spool key")
		}
		entry := Entry{ID: id, ReceivedAt: id.Time().UTC(), Size: len(it.Value())}
		if record, err := s.codec.Decode(it.Value()); err != nil {
			s.logger.Warn().Err(err).Str("id", id.String()).Msg("spool entry failed validation")
		} else {
			entry.ReceivedAt = record.Timestamp
			entry.Size = len(record.Payload)
		}
		entries = append(entries, entry)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of spooled envelopes
func (s *Spool) Len() (int, error) {
	it, err := s.iter()
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	return n, it.Error()
}

// Delete removes an envelope and its event index entry from the spool
func (s *Spool) Delete(id ksuid.KSUID) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	env, err := s.Get(id)
	switch {
	case errors.Is(err, ErrNotFound):
		return err
	case err != nil:
		s.logger.Warn().Err(err).Str("id", id.String()).Msg("dropping unreadable envelope")
	default:
		if eventID, ok := env.TryGetEventID(); ok {
			if err := batch.Delete(eventKey(eventID, id), nil); err != nil {
				env.Close()
				return err
			}
		}
		env.Close()
	}

	if err := batch.Delete(envelopeKey(id), nil); err != nil {
		return err
	}
	return batch.Commit(s.writeOpts)
}

func (s *Spool) lastID() (ksuid.KSUID, bool, error) {
	it, err := s.iter()
	if err != nil {
		return ksuid.Nil, false, err
	}
	defer it.Close()

	if !it.Last() {
		return ksuid.Nil, false, it.Error()
	}
	id, err := idFromKey(it.Key())
	if err != nil {
		return ksuid.Nil, false, errors.Wrap(err, "corrupt spool key")
	}
	return id, true, nil
}

// Close closes the underlying database
func (s *Spool) Close() error {
	return s.db.Close()
}
