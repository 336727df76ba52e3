package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API. A nil *Metrics records nothing.
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Envelope metrics
	envelopesReceivedTotal *prometheus.CounterVec
	itemsReceivedTotal     *prometheus.CounterVec
	envelopeBytes          prometheus.Histogram
	spoolDepth             prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates the API metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parcel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parcel_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		envelopesReceivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_envelopes_received_total",
				Help: "Envelopes received, by outcome",
			},
			[]string{"status"},
		),

		itemsReceivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_items_received_total",
				Help: "Items inside accepted envelopes, by item type",
			},
			[]string{"type"},
		),

		envelopeBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parcel_envelope_size_bytes",
				Help:    "Size of spooled envelopes in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),

		spoolDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parcel_spool_envelopes",
				Help: "Number of envelopes waiting in the spool",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}
}

func outcome(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEnvelope records an ingest attempt and, when it succeeded, the types of its items
func (m *Metrics) RecordEnvelope(success bool, size int, itemTypes []string) {
	if m == nil {
		return
	}
	m.envelopesReceivedTotal.WithLabelValues(outcome(success)).Inc()
	if !success {
		return
	}
	m.envelopeBytes.Observe(float64(size))
	for _, t := range itemTypes {
		if t == "" {
			t = "unknown"
		}
		m.itemsReceivedTotal.WithLabelValues(t).Inc()
	}
}

// SetSpoolDepth updates the spool gauge
func (m *Metrics) SetSpoolDepth(n int) {
	if m == nil {
		return
	}
	m.spoolDepth.Set(float64(n))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	m.authRequestsTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	if m == nil {
		return
	}
	m.healthChecksTotal.WithLabelValues(outcome(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
