// Package telemetry defines the payloads that travel inside envelopes.
//
// Each payload type knows how to render itself as JSON; the envelope package
// decides how those payloads are framed. Identifiers are 128-bit values
// rendered as 32 lowercase hex digits without dashes:
//
//	id := telemetry.NewEventID()
//	fmt.Println(id) // 9ec79c33ec9942ab8353589fcb2e04dc
//
// Attachments carry an AttachmentContent rather than bytes so that large files
// are only opened when an envelope is built, and the envelope owns the stream
// from then on.
package telemetry
