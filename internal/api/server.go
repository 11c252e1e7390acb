// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/history"
	"github.com/helpmate-bot/helpmate/internal/kb"
	"github.com/helpmate-bot/helpmate/internal/pipeline"
)

// defaultAskTimeout bounds the retrieval+refinement tier per request.
const defaultAskTimeout = 30 * time.Second

// Server exposes the answer engine to the bot gateway and the admin console.
type Server struct {
	router  chi.Router
	engine  *pipeline.Engine
	index   *kb.Index
	history *history.Log

	askTimeout time.Duration
}

// Option adjusts optional server collaborators.
type Option func(*Server)

// WithHistory serves the audit log at /v1/history.
func WithHistory(log *history.Log) Option {
	return func(s *Server) { s.history = log }
}

// WithAskTimeout overrides the per-request deadline of /v1/ask.
func WithAskTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.askTimeout = timeout
		}
	}
}

func NewServer(engine *pipeline.Engine, index *kb.Index, opts ...Option) *Server {
	srv := &Server{
		router:     chi.NewRouter(),
		engine:     engine,
		index:      index,
		askTimeout: defaultAskTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/answer", s.handleAnswer)
	s.router.Post("/v1/ask", s.handleAsk)
	s.router.Get("/v1/search", s.handleSearch)
	s.router.Post("/v1/reindex", s.handleReindex)
	s.router.Post("/v1/cache/invalidate", s.handleCacheInvalidate)
	s.router.Get("/v1/history", s.handleHistory)
	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
