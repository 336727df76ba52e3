// Package api serves the envelope ingest and inspection HTTP API
//
// @title           Parcel REST API
// @version         1.0.0
// @description     Ingest and inspection API for the parcel envelope spool.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

// Router builds the HTTP routes. gatherer backs /metrics; nil disables the endpoint.
func (s *Server) Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Post("/envelope", m.InstrumentHandler("POST", "/api/v1/envelope", s.handleIngest))
		r.Get("/envelopes", m.InstrumentHandler("GET", "/api/v1/envelopes", s.handleList))
		r.Get("/envelopes/{id}", m.InstrumentHandler("GET", "/api/v1/envelopes/{id}", s.handleGet))
		r.Delete("/envelopes/{id}", m.InstrumentHandler("DELETE", "/api/v1/envelopes/{id}", s.handleDelete))
		r.Get("/events/{event_id}", m.InstrumentHandler("GET", "/api/v1/events/{event_id}", s.handleFindByEvent))
	})

	return r
}

// StartServer serves the API until ctx is done, then shuts down gracefully
func StartServer(ctx context.Context, spool ISpool, config ServerConfig) error {
	metrics := NewMetrics(prometheus.DefaultRegisterer)
	server := NewServer(spool, config, metrics)
	server.refreshSpoolDepth()

	addr := net.JoinHostPort(config.Bind, strconv.Itoa(config.Port))
	SwaggerInfo.Host = docsHost(config.Bind, config.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		server.logger.Info().Str("addr", addr).Msg("starting parcel API server")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "api server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.logger.Info().Msg("shutting down parcel API server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown api server")
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "api server")
	}
	return nil
}

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	<title>Parcel API Documentation</title>
	<link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	<script>
	  window.onload = function() {
	    SwaggerUIBundle({
	      url: '/swagger/swagger.json',
	      dom_id: '#swagger-ui',
	      presets: [
	        SwaggerUIBundle.presets.apis,
	        SwaggerUIBundle.presets.standalone
	      ]
	    });
	  };
	</script>
</body>
</html>`

// handleSwagger serves the Swagger UI and the registered API document as JSON or YAML
func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(swaggerUI))
	case "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to render swagger document")
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	case "/swagger/swagger.yaml":
		doc, err := swaggerYAML()
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to render swagger document")
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(doc)
	default:
		http.NotFound(w, r)
	}
}

// swaggerYAML re-encodes the JSON document in block-style YAML, keeping key order
func swaggerYAML() ([]byte, error) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		return nil, errors.Wrap(err, "read swagger document")
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(doc), &node); err != nil {
		return nil, errors.Wrap(err, "parse swagger document")
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, errors.Wrap(err, "encode swagger yaml")
	}
	return out, nil
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func docsHost(bind string, port int) string {
	if bind == "" || bind == "0.0.0.0" || bind == "::" {
		bind = "localhost"
	}
	return net.JoinHostPort(bind, strconv.Itoa(port))
}

// requestLogger logs one line per request through zerolog
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msgf("%s %s", r.Method, r.URL.Path)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
