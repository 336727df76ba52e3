// Package envelope implements the envelope container format used to batch
// independently serialized payloads into one stream.
//
// # Wire Format
//
// An envelope is a header line followed by zero or more items:
//
//	<header-json>\n
//	<item-1-header-json>\n<item-1-payload>\n
//	<item-2-header-json>\n<item-2-payload>\n
//
// The header is a JSON object. Well-known keys are event_id, sdk, sent_at and
// trace. There is no item count; readers stop at the end of the stream.
//
// Each item header carries a type and, when written by this package, the
// payload length in bytes. Items read without a length extend to the next
// newline.
//
// # sent_at
//
// sent_at records the time of transmission. It is added on every write to a
// destination that is not a persistent file and removed on every read, so an
// envelope cached on disk is stamped only when it is finally sent:
//
//	f, _ := os.Create("event.envelope")
//	env.Serialize(f)                            // no sent_at
//	env.Serialize(conn)                         // sent_at added
//	env.Serialize(&envelope.PersistentBuffer{}) // no sent_at
//
// # Header Values
//
// Header values are a closed set of kinds (null, bool, string, integer,
// number, map, list). Non-finite numbers cannot be encoded; when one appears
// the entry holding it is logged and dropped while the rest of the envelope is
// still written. Partial delivery is preferred over failing the envelope.
//
// # Ownership
//
// An envelope owns its items and each item owns its payload. Close releases
// every payload exactly once. Attachments that are filtered out while an
// envelope is being built are closed before the factory returns.
//
// # Concurrency
//
// Serialize and SerializeContext write the same bytes. SerializeContext checks
// its context before every write and returns an error matching ErrCanceled once
// the context is done. Different envelopes may be serialized concurrently; a
// single envelope should be written by one goroutine at a time.
package envelope
