// Package api provides the local HTTP control API and the WebSocket status
// stream.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"autoinput/internal/config"
	xlog "autoinput/internal/log"
	"autoinput/internal/runner"
)

// Dispatcher runs fn on the goroutine that owns the controller and returns
// its error.
type Dispatcher interface {
	Call(ctx context.Context, fn func() error) error
}

// ConfigStore persists configuration documents.
type ConfigStore interface {
	Load() (config.Config, error)
	Persist(cfg config.Config) ([]string, error)
}

// Options configure a Server.
type Options struct {
	Dispatcher Dispatcher
	Controller *runner.Controller
	Configs    ConfigStore

	// Token enables bearer authentication when non-empty.
	Token string
}

// Server provides the HTTP API.
type Server struct {
	dispatch Dispatcher
	ctrl     *runner.Controller
	configs  ConfigStore
	token    string
	hub      *Hub
	logger   zerolog.Logger
}

// NewServer creates a server. Its hub must be started with Hub().Run.
func NewServer(opts Options) *Server {
	return &Server{
		dispatch: opts.Dispatcher,
		ctrl:     opts.Controller,
		configs:  opts.Configs,
		token:    opts.Token,
		hub:      NewHub(),
		logger:   xlog.WithComponent("api"),
	}
}

// Hub returns the status broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.logMiddleware)
	r.Use(s.originMiddleware)
	r.Use(s.authMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.hub.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/toggle", s.handleToggle)
		r.Post("/reset", s.handleReset)
		r.Patch("/settings", s.handleSettings)

		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Post("/config/save", s.handleSaveConfig)
		r.Post("/config/load", s.handleLoadConfig)

		r.Get("/sequences", s.handleListSequences)
		r.Post("/sequences", s.handleCreateSequence)
		r.Delete("/sequences/{index}", s.handleRemoveSequence)
		r.Put("/sequences/{index}/name", s.handleRenameSequence)
		r.Post("/sequences/{index}/select", s.handleSelectSequence)

		r.Post("/steps", s.handleAddStep)
		r.Put("/steps/{index}", s.handleUpdateStep)
		r.Delete("/steps/{index}", s.handleRemoveStep)
		r.Post("/steps/{index}/up", s.handleMoveStepUp)
		r.Post("/steps/{index}/down", s.handleMoveStepDown)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api listen %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("event", "api.listening").Str("addr", ln.Addr().String()).Msg("API server listening")
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		<-errCh
		s.logger.Info().Str("event", "api.stopped").Msg("API server stopped")
		return nil
	}
}

// recoverMiddleware prevents panics from crashing the whole server.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)
				s.logger.Error().
					Str("event", "panic.recovered").
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("panic", fmt.Sprint(rec)).
					Str("stack", string(buf[:n])).
					Msg("recovered panic in handler")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("event", "api.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

// authMiddleware checks the bearer token if one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		got := []byte(r.Header.Get("Authorization"))
		want := []byte("Bearer " + s.token)
		// Browsers cannot set headers on WebSocket upgrades.
		if r.URL.Path == "/ws" && len(got) == 0 {
			got = []byte("Bearer " + r.URL.Query().Get("token"))
		}
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
