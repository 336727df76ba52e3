package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// The event index maps event_id to spool ids. Keys are the composite
// eventPrefix + event id + spool id with empty values, so every envelope that
// carries an event id can be found with one prefix scan.
var eventPrefix = []byte("event/")

func eventKeyPrefix(eventID uuid.UUID) []byte {
	key := make([]byte, 0, len(eventPrefix)+len(eventID))
	key = append(key, eventPrefix...)
	return append(key, eventID[:]...)
}

func eventKey(eventID uuid.UUID, id ksuid.KSUID) []byte {
	return append(eventKeyPrefix(eventID), id.Bytes()...)
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// FindByEventID returns the spool ids of envelopes whose header carries
// eventID, oldest first. Index entries left behind by corrupt envelopes that
// were dropped are skipped.
func (s *Spool) FindByEventID(eventID uuid.UUID) ([]ksuid.KSUID, error) {
	prefix := eventKeyPrefix(eventID)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []ksuid.KSUID
	for it.First(); it.Valid(); it.Next() {
		id, err := ksuid.FromBytes(it.Key()[len(prefix):])
		if err != nil {
			return nil, errors.Wrap(err, "corrupt event index key")
		}
		ok, err := s.exists(id)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, it.Error()
}

func (s *Spool) exists(id ksuid.KSUID) (bool, error) {
	_, closer, err := s.db.Get(envelopeKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}
