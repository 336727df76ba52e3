// Package codec frames spooled envelopes with an integrity header.
//
// # Record Format
//
//	[CRC32(4)][PayloadSize(4)][Timestamp(8)][Payload]
//
// Fields:
//   - CRC32: IEEE checksum over every field that follows it (little-endian)
//   - PayloadSize: length of the payload in bytes (little-endian)
//   - Timestamp: time the record was created, Unix nanoseconds (little-endian)
//   - Payload: the envelope in wire form
//
// The total record size is HeaderSize + len(payload).
//
// Decode rejects short input, size mismatches and checksum failures with an
// error marked ErrCorrupt, so a damaged spool entry is reported instead of
// being handed to the envelope parser.
//
// RecordCodec is stateless and safe for concurrent use.
package codec
