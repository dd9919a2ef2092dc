package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pampa-labs/inflationd/internal/query"
	"github.com/pampa-labs/inflationd/internal/reconcile"
	"github.com/pampa-labs/inflationd/internal/store"
)

// Refresher triggers one reconciliation cycle without blocking behind an
// in-flight one. Implemented by reconcile.Driver.
type Refresher interface {
	TryRefresh(ctx context.Context) (reconcile.Result, error)
}

// Server is the HTTP surface over the series store and query engine.
type Server struct {
	store   *store.Store
	queries *query.Engine
	driver  Refresher
	log     *slog.Logger
	origins []string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS origin allowlist. An entry of "*"
// allows any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.origins = origins }
}

// WithServerLogger sets the structured logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer creates the HTTP server over the given collaborators.
// driver may be nil, in which case the refresh endpoint reports 503.
func NewServer(st *store.Store, queries *query.Engine, driver Refresher, opts ...ServerOption) *Server {
	s := &Server{
		store:   st,
		queries: queries,
		driver:  driver,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /inflation/data", s.handleData)
	mux.HandleFunc("GET /inflation/current", s.handleCurrent)
	mux.HandleFunc("GET /inflation/convert", s.handleConvert)
	mux.HandleFunc("GET /inflation/range", s.handleRange)
	mux.HandleFunc("GET /inflation/annual", s.handleAnnual)
	mux.HandleFunc("POST /admin/update-data", s.handleUpdateData)
	return s.cors(mux)
}

// cors applies the origin allowlist and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
