package api

import (
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/parcel/pkg/clock"
	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/storage"
	"github.com/ssargent/parcel/pkg/telemetry"
)

// Server holds the API server state
type Server struct {
	spool   ISpool
	config  ServerConfig
	metrics *Metrics
	logger  zerolog.Logger
	clock   clock.Clock
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(spool ISpool, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxEnvelopeBytes <= 0 {
		config.MaxEnvelopeBytes = DefaultMaxEnvelopeBytes
	}
	c := config.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Server{
		spool:   spool,
		config:  config,
		metrics: metrics,
		logger:  config.Logger,
		clock:   c,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Report API health and spool depth
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Failure		503	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.spool.Len()
	if err != nil {
		s.metrics.RecordHealthCheck(false)
		s.logger.Error().Err(err).Msg("health check could not read spool")
		sendError(w, "Spool unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.RecordHealthCheck(true)
	s.metrics.SetSpoolDepth(depth)
	sendSuccess(w, map[string]interface{}{"status": "healthy", "spool": depth})
}

// handleIngest godoc
//
//	@Summary		Ingest an envelope
//	@Description	Decode an envelope from the request body and add it to the spool
//	@Tags			envelopes
//	@Accept			application/x-sentry-envelope
//	@Produce		json
//	@Param			body	body		string	true	"Envelope in wire form"
//	@Success		200		{object}	IngestResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/envelope [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body := &countingReader{r: http.MaxBytesReader(w, r.Body, s.config.MaxEnvelopeBytes)}

	env, err := envelope.DeserializeContext(r.Context(), body)
	if err != nil {
		s.metrics.RecordEnvelope(false, body.n, nil)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			sendError(w, "Envelope too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, envelope.ErrCanceled):
			s.logger.Debug().Err(err).Msg("client went away during ingest")
		default:
			s.logger.Warn().Err(err).Int("bytes", body.n).Msg("rejecting malformed envelope")
			sendError(w, "Malformed envelope: "+err.Error(), http.StatusBadRequest)
		}
		return
	}
	defer env.Close()

	id, err := s.spool.Enqueue(env)
	if err != nil {
		s.metrics.RecordEnvelope(false, body.n, nil)
		s.logger.Error().Err(err).Msg("failed to spool envelope")
		sendError(w, "Failed to spool envelope", http.StatusInternalServerError)
		return
	}

	s.metrics.RecordEnvelope(true, body.n, itemTypes(env))
	s.refreshSpoolDepth()

	resp := IngestResponse{ID: id.String(), Items: env.Len()}
	if eventID, ok := env.TryGetEventID(); ok {
		resp.EventID = telemetry.EventID(eventID).String()
	}
	s.logger.Info().Str("id", resp.ID).Str("event_id", resp.EventID).Int("items", resp.Items).Msg("envelope spooled")
	sendSuccess(w, resp)
}

// handleList godoc
//
//	@Summary		List envelopes
//	@Description	List spooled envelopes, oldest first
//	@Tags			envelopes
//	@Produce		json
//	@Success		200	{array}		EnvelopeSummary
//	@Failure		500	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/envelopes [get]
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.spool.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list spool")
		sendError(w, "Failed to list envelopes", http.StatusInternalServerError)
		return
	}

	summaries := make([]EnvelopeSummary, 0, len(entries))
	for _, entry := range entries {
		summary, err := s.summarize(entry)
		if err != nil {
			s.logger.Warn().Err(err).Str("id", entry.ID.String()).Msg("skipping unreadable envelope")
			continue
		}
		summaries = append(summaries, summary)
	}
	sendSuccess(w, summaries)
}

// handleFindByEvent godoc
//
//	@Summary		Find envelopes by event id
//	@Description	List spooled envelopes whose header carries the event id
//	@Tags			events
//	@Produce		json
//	@Param			event_id	path		string	true	"Event id, 32 hex digits or dashed"
//	@Success		200		{array}		EnvelopeSummary
//	@Failure		400		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/events/{event_id} [get]
func (s *Server) handleFindByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := telemetry.ParseEventID(chi.URLParam(r, "event_id"))
	if err != nil {
		sendError(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	ids, err := s.spool.FindByEventID(uuid.UUID(eventID))
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID.String()).Msg("event index lookup failed")
		sendError(w, "Failed to look up event", http.StatusInternalServerError)
		return
	}

	summaries := make([]EnvelopeSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := s.summarize(storage.Entry{ID: id, ReceivedAt: id.Time().UTC()})
		if err != nil {
			s.logger.Warn().Err(err).Str("id", id.String()).Msg("skipping unreadable envelope")
			continue
		}
		summaries = append(summaries, summary)
	}
	sendSuccess(w, summaries)
}

func (s *Server) summarize(entry storage.Entry) (EnvelopeSummary, error) {
	env, err := s.spool.Get(entry.ID)
	if err != nil {
		return EnvelopeSummary{}, err
	}
	defer env.Close()

	summary := EnvelopeSummary{
		ID:         entry.ID.String(),
		ReceivedAt: entry.ReceivedAt,
		Size:       entry.Size,
		Items:      itemTypes(env),
	}
	if eventID, ok := env.TryGetEventID(); ok {
		summary.EventID = telemetry.EventID(eventID).String()
	}
	return summary, nil
}

// handleGet godoc
//
//	@Summary		Get an envelope
//	@Description	Write a spooled envelope in wire form, stamped with sent_at
//	@Tags			envelopes
//	@Produce		application/x-sentry-envelope
//	@Param			id	path		string	true	"Envelope KSUID"
//	@Success		200	{string}	string
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/envelopes/{id} [get]
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.envelopeID(w, r)
	if !ok {
		return
	}

	env, err := s.spool.Get(id)
	if err != nil {
		s.sendLookupError(w, id, err)
		return
	}
	defer env.Close()

	w.Header().Set("Content-Type", ContentTypeEnvelope)
	w.WriteHeader(http.StatusOK)
	err = env.SerializeContext(r.Context(), w, envelope.WithLogger(s.logger), envelope.WithClock(s.clock))
	if err != nil {
		s.logger.Warn().Err(err).Str("id", id.String()).Msg("failed to write envelope")
	}
}

// handleDelete godoc
//
//	@Summary		Delete an envelope
//	@Description	Drop an envelope from the spool
//	@Tags			envelopes
//	@Produce		json
//	@Param			id	path		string	true	"Envelope KSUID"
//	@Success		200	{object}	map[string]string
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/envelopes/{id} [delete]
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.envelopeID(w, r)
	if !ok {
		return
	}

	if err := s.spool.Delete(id); err != nil {
		s.sendLookupError(w, id, err)
		return
	}
	s.refreshSpoolDepth()
	sendSuccess(w, map[string]string{"message": "Envelope deleted", "id": id.String()})
}

func (s *Server) envelopeID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid envelope id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func (s *Server) sendLookupError(w http.ResponseWriter, id ksuid.KSUID, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Envelope not found", http.StatusNotFound)
		return
	}
	s.logger.Error().Err(err).Str("id", id.String()).Msg("spool lookup failed")
	sendError(w, "Failed to read envelope", http.StatusInternalServerError)
}

func (s *Server) refreshSpoolDepth() {
	depth, err := s.spool.Len()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read spool depth")
		return
	}
	s.metrics.SetSpoolDepth(depth)
}

func itemTypes(env *envelope.Envelope) []string {
	items := env.Items()
	types := make([]string, len(items))
	for i, item := range items {
		types[i] = item.Type()
	}
	return types
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
