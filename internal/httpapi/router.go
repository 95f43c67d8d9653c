// Package httpapi exposes the chat service over HTTP: session issuance, the
// gated chat endpoint, and the operational health and metrics routes.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/concierge/internal/chat"
	"github.com/sells-group/concierge/internal/monitoring"
	"github.com/sells-group/concierge/internal/session"
)

// Permitted request body size. Oversized payloads fail in the JSON decoder
// rather than buffering.
const defaultMaxBodyBytes = 1 << 20

// Chat is the orchestration entry point the router fronts.
type Chat interface {
	Handle(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// Options wires the router. Chat, Gate and Metrics are required. Empty
// CORSOrigins admits any origin.
type Options struct {
	Chat         Chat
	Gate         *session.Gate
	Metrics      *monitoring.Registry
	CORSOrigins  []string
	Development  bool
	MaxBodyBytes int64
}

type api struct {
	chat        Chat
	gate        *session.Gate
	metrics     *monitoring.Registry
	development bool
}

// NewRouter builds the HTTP handler for the chat service.
func NewRouter(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	a := &api{
		chat:        opts.Chat,
		gate:        opts.Gate,
		metrics:     opts.Metrics,
		development: opts.Development,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(limitBody(opts.MaxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Get("/metrics", a.handleMetrics)
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", a.handleSession)
		r.Post("/chat", a.handleChat)
	})

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.metrics.Snapshot())
}
