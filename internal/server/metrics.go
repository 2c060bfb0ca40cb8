package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instruments holds the otel metric instruments for the HTTP surface. The
// global meter provider is the seam; without an SDK configured these are
// no-ops.
type instruments struct {
	requests     metric.Int64Counter
	scanDuration metric.Float64Histogram
}

func newInstruments() *instruments {
	meter := otel.Meter("github.com/voglerr/claudescope/internal/server")

	requests, err := meter.Int64Counter("claudescope.http.requests",
		metric.WithDescription("Handled HTTP requests"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create request counter")
	}
	scanDuration, err := meter.Float64Histogram("claudescope.scan.duration",
		metric.WithDescription("Request handling time including log scans"),
		metric.WithUnit("s"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create scan duration histogram")
	}

	return &instruments{requests: requests, scanDuration: scanDuration}
}

// requestLogger tags each request with a UUID, logs it and records the otel
// instruments.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("path", r.URL.Path),
			attribute.Int("status", ww.Status()),
		)
		s.metrics.requests.Add(r.Context(), 1, attrs)
		s.metrics.scanDuration.Record(r.Context(), elapsed.Seconds(), attrs)

		log.Debug().
			Str("requestId", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("Request handled")
	})
}
