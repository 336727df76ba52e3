package envelope

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/ssargent/parcel/pkg/telemetry"
)

// Factory builds canonical envelopes for each kind of payload
type Factory struct {
	logger zerolog.Logger
	sdk    *telemetry.SdkVersion
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger that reports dropped attachments
func WithFactoryLogger(logger zerolog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithSdk overrides the sdk header
func WithSdk(sdk telemetry.SdkVersion) FactoryOption {
	return func(f *Factory) {
		f.sdk = &sdk
	}
}

// WithoutSdk omits the sdk header
func WithoutSdk() FactoryOption {
	return func(f *Factory) {
		f.sdk = nil
	}
}

// NewFactory creates a factory that stamps telemetry.DefaultSdk unless told otherwise
func NewFactory(opts ...FactoryOption) *Factory {
	sdk := telemetry.DefaultSdk()
	f := &Factory{logger: zerolog.Nop(), sdk: &sdk}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var defaultFactory = NewFactory()

func (f *Factory) defaultHeader() *Map {
	h := NewMap()
	if f.sdk != nil {
		sdk := NewMap()
		sdk.Set("name", String(f.sdk.Name))
		sdk.Set("version", String(f.sdk.Version))
		h.Set(KeySdk, MapValue(sdk))
	}
	return h
}

func (f *Factory) headerWithEventID(id telemetry.EventID) *Map {
	h := f.defaultHeader()
	h.Set(KeyEventID, String(id.String()))
	return h
}

// FromEvent builds an envelope holding the event, its non-empty attachments and
// an optional session update, in that order. Attachments that are empty or
// cannot be opened are logged and left out.
func (f *Factory) FromEvent(event *telemetry.Event, attachments []telemetry.Attachment, session *telemetry.SessionUpdate) *Envelope {
	header := f.headerWithEventID(event.EventID)
	items := []*Item{ItemFromEvent(event)}

	for _, attachment := range attachments {
		if item := f.attachmentItem(attachment); item != nil {
			items = append(items, item)
		}
	}

	if session != nil {
		items = append(items, ItemFromSession(session))
	}

	return New(header, items)
}

// attachmentItem opens the attachment and wraps it in an item. A stream that is
// opened but not returned inside an item is closed here.
func (f *Factory) attachmentItem(attachment telemetry.Attachment) *Item {
	log := f.logger.With().Str("filename", attachment.Filename).Logger()
	if attachment.Content == nil {
		log.Error().Msg("attachment has no content source, dropping it")
		return nil
	}

	stream, err := attachment.Content.Open()
	if err != nil {
		log.Error().Err(err).Msg("failed to open attachment, dropping it")
		return nil
	}

	length, err := streamLength(stream)
	if err != nil {
		log.Error().Err(err).Msg("failed to read attachment length, dropping it")
		closeStream(log, stream)
		return nil
	}
	if length == 0 {
		log.Warn().Msg("attachment is empty, dropping it")
		closeStream(log, stream)
		return nil
	}

	return ItemFromAttachment(attachment, stream)
}

func closeStream(log zerolog.Logger, stream io.Closer) {
	if err := stream.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to release attachment stream")
	}
}

// streamLength probes the remaining length of r without reading it. It returns
// -1 when the length cannot be known up front.
func streamLength(r io.Reader) (int64, error) {
	switch s := r.(type) {
	case interface{ Len() int }:
		return int64(s.Len()), nil
	case interface{ Stat() (os.FileInfo, error) }:
		fi, err := s.Stat()
		if err != nil {
			return 0, errors.Wrap(err, "stat attachment")
		}
		if !fi.Mode().IsRegular() {
			return -1, nil
		}
		return fi.Size(), nil
	case io.Seeker:
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, errors.Wrap(err, "seek attachment")
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, errors.Wrap(err, "seek attachment")
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return 0, errors.Wrap(err, "seek attachment")
		}
		return end - cur, nil
	}
	return -1, nil
}

// FromFeedback builds an envelope holding user feedback
func (f *Factory) FromFeedback(feedback *telemetry.UserFeedback) *Envelope {
	return New(f.headerWithEventID(feedback.EventID), []*Item{ItemFromFeedback(feedback)})
}

// FromTransaction builds an envelope holding a transaction. The dynamic
// sampling context, when present, goes into the trace header.
func (f *Factory) FromTransaction(tx *telemetry.Transaction) *Envelope {
	header := f.headerWithEventID(tx.EventID)
	if dsc := tx.SamplingContext; dsc != nil {
		header.Set(KeyTrace, StringMap(dsc.Keys(), dsc.Items()))
	}
	return New(header, []*Item{ItemFromTransaction(tx)})
}

// FromSession builds an envelope holding a session update
func (f *Factory) FromSession(update *telemetry.SessionUpdate) *Envelope {
	return New(f.defaultHeader(), []*Item{ItemFromSession(update)})
}

// FromClientReport builds an envelope holding a client report
func (f *Factory) FromClientReport(report *telemetry.ClientReport) *Envelope {
	return New(f.defaultHeader(), []*Item{ItemFromClientReport(report)})
}

// FromEvent uses the default factory
func FromEvent(event *telemetry.Event, attachments []telemetry.Attachment, session *telemetry.SessionUpdate) *Envelope {
	return defaultFactory.FromEvent(event, attachments, session)
}

// FromFeedback uses the default factory
func FromFeedback(feedback *telemetry.UserFeedback) *Envelope {
	return defaultFactory.FromFeedback(feedback)
}

// FromTransaction uses the default factory
func FromTransaction(tx *telemetry.Transaction) *Envelope {
	return defaultFactory.FromTransaction(tx)
}

// FromSession uses the default factory
func FromSession(update *telemetry.SessionUpdate) *Envelope {
	return defaultFactory.FromSession(update)
}

// FromClientReport uses the default factory
func FromClientReport(report *telemetry.ClientReport) *Envelope {
	return defaultFactory.FromClientReport(report)
}

func typedHeader(itemType string) *Map {
	h := NewMap()
	h.Set(ItemKeyType, String(itemType))
	return h
}

// ItemFromEvent wraps an event
func ItemFromEvent(event *telemetry.Event) *Item {
	return NewItem(typedHeader(TypeEvent), JSONPayload{Value: event})
}

// ItemFromFeedback wraps user feedback
func ItemFromFeedback(feedback *telemetry.UserFeedback) *Item {
	return NewItem(typedHeader(TypeFeedback), JSONPayload{Value: feedback})
}

// ItemFromTransaction wraps a transaction
func ItemFromTransaction(tx *telemetry.Transaction) *Item {
	return NewItem(typedHeader(TypeTransaction), JSONPayload{Value: tx})
}

// ItemFromSession wraps a session update
func ItemFromSession(update *telemetry.SessionUpdate) *Item {
	return NewItem(typedHeader(TypeSession), JSONPayload{Value: update})
}

// ItemFromClientReport wraps a client report
func ItemFromClientReport(report *telemetry.ClientReport) *Item {
	return NewItem(typedHeader(TypeClientReport), JSONPayload{Value: report})
}

// ItemFromAttachment wraps an opened attachment stream. The item owns stream.
func ItemFromAttachment(attachment telemetry.Attachment, stream io.ReadCloser) *Item {
	h := typedHeader(TypeAttachment)
	h.Set(ItemKeyFilename, String(attachment.Filename))
	if attachment.ContentType != "" {
		h.Set(ItemKeyContentType, String(attachment.ContentType))
	}
	if attachment.AttachmentType != "" {
		h.Set(ItemKeyAttachmentType, String(attachment.AttachmentType))
	}
	return NewItem(h, NewStreamPayload(stream))
}
