// Package http exposes the assistant over a JSON and multipart HTTP API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/session"
)

// DefaultMaxUploadBytes bounds a multipart request body.
const DefaultMaxUploadBytes = 64 << 20

// Assistant is the pipeline the handlers drive.
type Assistant interface {
	Chat(ctx context.Context, sess *session.Session, input string) (string, error)
	IngestDocument(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) models.Result
	TranscribeVoice(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) (models.Result, error)
	AskDocument(ctx context.Context, sess *session.Session, question string) (string, error)
	AskByVoice(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) (models.Result, string, error)
}

// Deps holds what the router needs.
type Deps struct {
	Sessions       *session.Store
	Assistant      Assistant
	Ready          func(ctx context.Context) error
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	h := &handlers{
		sessions:  deps.Sessions,
		assistant: deps.Assistant,
		maxUpload: deps.MaxUploadBytes,
		logger:    logging.WithComponent("http"),
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(countRequests(metrics.DefaultMetrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", h.closeSession)
			r.Get("/history", h.history)
			r.Post("/chat", h.chat)
			r.Post("/documents", h.uploadDocument)
			r.Post("/voice", h.uploadVoice)
			r.Post("/ask", h.ask)
		})
	})

	return r
}

// countRequests records each response status against its route pattern.
func countRequests(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RecordHTTPRequest(route, status)

			log.Debug().
				Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("requestId", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}
