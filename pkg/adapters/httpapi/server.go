// Package httpapi serves the note store over HTTP.
//
// Two surfaces share one handler: REST routes under /api and a method
// dispatcher at /rpc. Neither authenticates callers; the workspace of a
// request is chosen by a workspace.Resolver from the X-Agent-ID header
// or the agent query parameter.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/notebox/pkg/core"
	"github.com/aretw0/notebox/pkg/workspace"
)

// AgentHeader carries the caller's agent id.
const AgentHeader = "X-Agent-ID"

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// Config configures a Server.
type Config struct {
	Service         *core.Service      // required
	Roots           workspace.Resolver // required
	Logger          *slog.Logger       // nil discards
	MaxBodyBytes    int64              // zero means DefaultMaxBodyBytes
	ShutdownTimeout time.Duration      // zero means 10s
}

// Server routes HTTP requests to the note service.
type Server struct {
	service         *core.Service
	roots           workspace.Resolver
	logger          *slog.Logger
	maxBody         int64
	shutdownTimeout time.Duration
	mux             *http.ServeMux
}

// New builds a Server and registers its routes.
func New(config Config) (*Server, error) {
	if config.Service == nil {
		return nil, errors.New("httpapi: Service is required")
	}
	if config.Roots == nil {
		return nil, errors.New("httpapi: Roots is required")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		service:         config.Service,
		roots:           config.Roots,
		logger:          config.Logger,
		maxBody:         config.MaxBodyBytes,
		shutdownTimeout: config.ShutdownTimeout,
		mux:             http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/notes", s.handleGetNotes)
	s.mux.HandleFunc("POST /api/notes", s.handleSaveNote)
	s.mux.HandleFunc("DELETE /api/notes", s.handleDeleteNote)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /rpc", s.handleRPC)
	return s, nil
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.logger, s.mux)
}

// Serve listens on address until ctx is cancelled, then drains active
// requests. ready, when non-nil, receives the bound address.
func (s *Server) Serve(ctx context.Context, address string, ready func(net.Addr)) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	if ready != nil {
		ready(listener.Addr())
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("http server listening", "address", listener.Addr().String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// root picks the workspace for a request.
func (s *Server) root(r *http.Request) (string, error) {
	agent := r.Header.Get(AgentHeader)
	if agent == "" {
		agent = r.URL.Query().Get("agent")
	}
	return s.roots.Root(r.Context(), agent)
}

// Status reports the introspection state of the served components.
type Status struct {
	Service    any      `json:"service" cbor:"service"`
	Repository any      `json:"repository,omitempty" cbor:"repository,omitempty"`
	Agents     []string `json:"agents,omitempty" cbor:"agents,omitempty"`
}

func (s *Server) status() Status {
	st := Status{Service: s.service.State()}
	if repo, ok := s.service.Repository().(introspection.Introspectable); ok {
		st.Repository = repo.State()
	}
	if lister, ok := s.roots.(workspace.AgentLister); ok {
		agents, err := lister.Agents()
		if err != nil {
			s.logger.Warn("failed to list agents", "error", err)
		}
		st.Agents = agents
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.status())
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	codec := responseCodec(r)
	w.Header().Set("Content-Type", codec.MediaType())
	w.WriteHeader(status)
	if err := codec.Encode(w, v); err != nil {
		s.logger.Warn("failed to encode response", "path", r.URL.Path, "error", err)
	}
}

// decodeBody reads a size-limited body into an untyped map.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var body map[string]any
	reader := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := requestCodec(r).Decode(reader, &body); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if body == nil {
		return nil, errors.New("invalid request body: expected an object")
	}
	return body, nil
}

// httpStatus maps the error taxonomy onto status codes.
// Not-found is checked first: unresolvable ids on reads match both
// ErrNotFound and ErrInvalidID.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrReadOnly):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
