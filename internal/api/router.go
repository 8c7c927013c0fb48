// Package api serves the published playlist over HTTP.
//
// Every resource family (albums, artists, songs, tracks) is backed by the
// same published document. Item and write routes are fixed stub responses
// that never touch pipeline state.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jfmyers9/onair/internal/playlist"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Families are the resource families mounted under /api
var Families = []string{"albums", "artists", "songs", "tracks"}

// SnapshotReader is the read side of the published cache
type SnapshotReader interface {
	Snapshot() playlist.Snapshot
}

// Config holds router configuration
type Config struct {
	CORSOrigins     []string      // Allowed CORS origins ("*" allows any)
	RateLimit       int           // Requests per RateLimitWindow per client IP (0 disables)
	RateLimitWindow time.Duration // Rate limit window (defaults to 1m)
}

// NewRouter builds the HTTP handler for the serving surface
func NewRouter(cfg Config, reader SnapshotReader, logger zerolog.Logger) http.Handler {
	h := &handlers{
		reader: reader,
		logger: logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	}))

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			window := cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(cfg.RateLimit, window))
		}

		for _, family := range Families {
			r.Route("/"+family, func(r chi.Router) {
				r.Get("/", h.list)
				r.Post("/", h.create)
				r.Get("/{id}", h.show)
				r.Put("/{id}", h.update)
				r.Delete("/{id}", h.destroy)
			})
		}
	})

	return r
}

// requestLogger logs one line per request with the chi request id
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request")
		})
	}
}
