// Package httpserver exposes a minimal read-only HTTP surface for a
// long-running candlefeed process: /healthz and /metrics.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/candlefeed/internal/feed"
)

// Config controls the server's bind address and timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a local-only binding with conservative timeouts.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// FeedLister reports on every feed a process is currently running, for the
// /healthz summary.
type FeedLister interface {
	Feeds() []*feed.Feed
}

// Server is the read-only HTTP surface. It never mutates feed state.
type Server struct {
	router *mux.Router
	server *http.Server
	feeds  FeedLister
	cfg    Config
}

// New builds a Server bound to addr; it does not start listening until
// ListenAndServe is called.
func New(cfg Config, feeds FeedLister) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	router := mux.NewRouter()
	s := &Server{router: router, feeds: feeds, cfg: cfg}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	feeds := s.feeds.Feeds()
	fmt.Fprintf(w, `{"feeds":%d,"ready":[`, len(feeds))
	for i, f := range feeds {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, "%t", f.Ready())
	}
	fmt.Fprint(w, "]}")
}

// ListenAndServe starts the server and blocks until it errors or is
// stopped. It binds the address up front so startup failures surface
// immediately rather than inside the serving goroutine.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: bind %s: %w", s.server.Addr, err)
	}
	log.Info().Str("addr", s.server.Addr).Msg("httpserver listening")
	return s.server.Serve(ln)
}

// Shutdown gracefully stops the server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
