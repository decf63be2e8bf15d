// Package api provides the JSON/SSE HTTP surface for the assistant: chat,
// thread management, persona listing, and health probes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"secondbrain/internal/persona"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Runner      TurnRunner        // Required
	Threads     ThreadStore       // Required
	Personas    *persona.Registry // Required
	Pool        *pgxpool.Pool     // Optional: nil disables pool stats in /ready
	CORSOrigins []string          // Allowed origins for CORS
	TrustProxy  bool              // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateRPS     float64           // Rate limiter refill per IP (0 = default 5/s)
	RateBurst   int               // Rate limiter burst size per IP (0 = default 10)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("turn runner is required")
	}
	if cfg.Threads == nil {
		return nil, errors.New("thread store is required")
	}
	if cfg.Personas == nil {
		return nil, errors.New("persona registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{runner: cfg.Runner, logger: logger}
	th := &threadHandler{store: cfg.Threads, logger: logger}
	ph := &personaHandler{registry: cfg.Personas}

	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)

	// Thread CRUD
	mux.HandleFunc("GET /api/v1/threads", th.listThreads)
	mux.HandleFunc("POST /api/v1/threads", th.createThread)
	mux.HandleFunc("GET /api/v1/threads/{id}", th.getThread)
	mux.HandleFunc("GET /api/v1/threads/{id}/messages", th.getMessages)
	mux.HandleFunc("DELETE /api/v1/threads/{id}", th.deleteThread)
	mux.HandleFunc("DELETE /api/v1/threads/{id}/messages", th.clearThread)

	// Personas
	mux.HandleFunc("GET /api/v1/personas", ph.listPersonas)

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 5.0
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes out of the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
