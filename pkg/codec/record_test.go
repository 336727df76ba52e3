package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 6, 22, 8, 0, 0, 0, time.UTC)

func fixedCodec() *RecordCodec {
	return NewRecordCodec(func() time.Time { return fixedTime })
}

func TestRecordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := fixedCodec()

	testCases := []struct {
		name    string
		payload []byte
	}{
		{name: "envelope", payload: []byte("{\"event_id\":\"9ec79c33ec9942ab8353589fcb2e04dc\"}\n{\"type\":\"event\",\"length\":2}\n{}\n")},
		{name: "empty payload", payload: []byte{}},
		{name: "binary data", payload: []byte{0x00, 0x0A, 0xFF, 0xFE}},
		{name: "large payload", payload: bytes.Repeat([]byte("v"), 64*1024)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.payload)
			require.NoError(t, err)
			assert.Len(t, encoded, HeaderSize+len(tc.payload))

			record, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.payload, record.Payload)
			assert.True(t, fixedTime.Equal(record.Timestamp))
		})
	}
}

func TestRecordCodec_DetectsCorruption(t *testing.T) {
	codec := fixedCodec()
	encoded, err := codec.Encode([]byte("payload"))
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{name: "short header", mutate: func(b []byte) []byte { return b[:HeaderSize-1] }},
		{name: "truncated payload", mutate: func(b []byte) []byte { return b[:len(b)-1] }},
		{name: "trailing bytes", mutate: func(b []byte) []byte { return append(b, 'x') }},
		{name: "flipped payload bit", mutate: func(b []byte) []byte { b[HeaderSize] ^= 0x01; return b }},
		{name: "flipped timestamp bit", mutate: func(b []byte) []byte { b[9] ^= 0x80; return b }},
		{name: "flipped checksum bit", mutate: func(b []byte) []byte { b[0] ^= 0x01; return b }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.mutate(append([]byte(nil), encoded...))
			_, err := codec.Decode(data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestNewRecordCodec_DefaultsToWallClock(t *testing.T) {
	codec := NewRecordCodec(nil)
	encoded, err := codec.Encode([]byte("x"))
	require.NoError(t, err)

	record, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), record.Timestamp, time.Minute)
}

func FuzzRecordCodec_Decode(f *testing.F) {
	codec := fixedCodec()
	seed, _ := codec.Encode([]byte("seed"))
	f.Add(seed)
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0xFF}, HeaderSize))

	f.Fuzz(func(t *testing.T, data []byte) {
		record, err := codec.Decode(data)
		if err != nil {
			assert.ErrorIs(t, err, ErrCorrupt)
			return
		}
		reencoded, err := NewRecordCodec(func() time.Time { return record.Timestamp }).Encode(record.Payload)
		require.NoError(t, err)
		assert.Equal(t, data, reencoded)
	})
}
