package codec

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// HeaderSize is the fixed size of a record header
const HeaderSize = 16

// ErrCorrupt marks records that fail framing or checksum validation
var ErrCorrupt = errors.New("corrupt record")

// Record is a payload with its creation time
type Record struct {
	CRC32     uint32
	Timestamp time.Time
	Payload   []byte
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct {
	now func() time.Time
}

// NewRecordCodec creates a codec that stamps records with now. A nil now uses time.Now.
func NewRecordCodec(now func() time.Time) *RecordCodec {
	if now == nil {
		now = time.Now
	}
	return &RecordCodec{now: now}
}

// Encode frames payload in a new record
func (c *RecordCodec) Encode(payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, errors.Newf("payload of %d bytes exceeds record limit", len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(payload)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(c.now().UnixNano()))
	copy(buf[HeaderSize:], payload)
	binary.LittleEndian.PutUint32(buf[0:], crc32.ChecksumIEEE(buf[4:]))

	return buf, nil
}

// Decode parses and validates a record. Payload aliases data.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	if len(data) < HeaderSize {
		return nil, errors.Mark(errors.Newf("record of %d bytes is shorter than its header", len(data)), ErrCorrupt)
	}

	size := binary.LittleEndian.Uint32(data[4:8])
	if uint64(len(data)-HeaderSize) != uint64(size) {
		return nil, errors.Mark(errors.Newf("record declares %d payload bytes, has %d", size, len(data)-HeaderSize), ErrCorrupt)
	}

	r := &Record{
		CRC32:     binary.LittleEndian.Uint32(data[0:4]),
		Timestamp: time.Unix(0, int64(binary.LittleEndian.Uint64(data[8:16]))).UTC(),
		Payload:   data[HeaderSize:],
	}
	if sum := crc32.ChecksumIEEE(data[4:]); sum != r.CRC32 {
		return nil, errors.Mark(errors.Newf("CRC32 mismatch: %d != %d", r.CRC32, sum), ErrCorrupt)
	}
	return r, nil
}
