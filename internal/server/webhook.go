package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
)

// WebhookServer is the inbound HTTP surface. External sources deliver
// events to /webhooks/<name>; route handlers translate payloads into bus
// events. Registration must happen before Start.
type WebhookServer struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  arbor.ILogger
	running bool
	mu      sync.Mutex
}

// NewWebhookServer creates a webhook server bound to host:port
func NewWebhookServer(host string, port int, logger arbor.ILogger) *WebhookServer {
	mux := http.NewServeMux()

	s := &WebhookServer{
		mux:    mux,
		logger: logger,
	}

	mux.HandleFunc("/", s.notFound)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Register mounts a handler at the normalized webhook path. "quicknode",
// "/quicknode" and "webhook/quicknode" all mount at /webhooks/quicknode.
func (s *WebhookServer) Register(path string, handler http.Handler) {
	normalized := NormalizePath(path)
	s.mux.Handle(normalized, handler)
	s.logger.Info().Str("path", normalized).Msg("Webhook route registered")
}

// RegisterRaw mounts a handler at an exact path, bypassing webhook
// normalization. Used for the chat websocket endpoint.
func (s *WebhookServer) RegisterRaw(path string, handler http.Handler) {
	s.mux.Handle(path, handler)
	s.logger.Info().Str("path", path).Msg("Route registered")
}

// Start begins serving in the background. Calling Start on a running
// server logs a warning and returns nil.
func (s *WebhookServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("Webhook server already running, ignoring start")
		return nil
	}
	s.running = true

	s.logger.Info().Str("address", s.server.Addr).Msg("Webhook server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Webhook server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *WebhookServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("webhook server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("Webhook server stopped")
	return nil
}

// Handler exposes the middleware-wrapped handler for tests
func (s *WebhookServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *WebhookServer) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintln(w, "not found")
}

// NormalizePath maps a route name to its canonical /webhooks/<name> form
func NormalizePath(path string) string {
	p := strings.Trim(path, "/")
	p = strings.TrimPrefix(p, "webhooks/")
	p = strings.TrimPrefix(p, "webhook/")
	return "/webhooks/" + p
}

// withMiddleware wraps the router with middleware chain
func (s *WebhookServer) withMiddleware(handler http.Handler) http.Handler {
	handler = s.recoveryMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	return handler
}

// loggingMiddleware logs HTTP requests and responses
func (s *WebhookServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Str("duration", time.Since(start).String()).
			Msg("HTTP request")
	})
}

// recoveryMiddleware recovers from panics and returns 500 error
func (s *WebhookServer) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error().
					Str("error", fmt.Sprintf("%v", err)).
					Str("path", r.URL.Path).
					Msg("Panic recovered")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for websocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("responseWriter does not implement http.Hijacker")
}

var _ interfaces.WebhookRouter = (*WebhookServer)(nil)
