// ABOUTME: HTTP server orchestrator for the races API
// ABOUTME: Builds the chi router and manages listener setup, tailscale and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"tailscale.com/tsnet"

	"github.com/2389/races/internal/auth"
	"github.com/2389/races/internal/config"
	"github.com/2389/races/internal/metrics"
	"github.com/2389/races/internal/store"
)

// APIPrefix is the mount point of the race API
const APIPrefix = "/races/api/v1"

// BoatResolver maps a polar id to a boat name
type BoatResolver interface {
	Resolve(ctx context.Context, polarID int) (string, bool)
}

// Deps holds the collaborators of a Server. Store and Config are required.
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Boats    BoatResolver
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Verifier auth.TokenVerifier // nil leaves mutating routes open
}

// Server serves the race API over HTTP.
type Server struct {
	config      *config.Config
	store       store.Store
	boats       BoatResolver
	verifier    auth.TokenVerifier
	metrics     *metrics.Metrics
	router      chi.Router
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// noBoats resolves nothing
type noBoats struct{}

func (noBoats) Resolve(context.Context, int) (string, bool) { return "", false }

// New wires the router. It does not open any listener.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	boats := deps.Boats
	if boats == nil {
		boats = noBoats{}
	}

	s := &Server{
		config:   deps.Config,
		store:    metrics.InstrumentStore(deps.Store, deps.Metrics),
		boats:    boats,
		verifier: deps.Verifier,
		metrics:  deps.Metrics,
		logger:   logger.With("component", "server"),
	}
	s.router = s.routes()

	s.httpServer = &http.Server{
		Addr:              deps.Config.Server.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	if s.metrics != nil && s.config.Metrics.Enabled {
		r.Method(http.MethodGet, s.config.Metrics.Path, s.metrics.Handler())
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/races", s.handleListRaces)
		r.Get("/races/{raceID}", s.handleGetRace)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireBearer(s.verifier, s.logger))

			r.Post("/races", s.handleCreateRace)
			r.Put("/races/{raceID}", s.handleUpdateRace)
			r.Delete("/races/{raceID}", s.handleDeleteRace)
			r.Post("/races/{raceID}/archive", s.handleArchiveRace)
			r.Post("/races/{raceID}/restore", s.handleRestoreRace)
			r.Post("/legs", s.handleCreateFromLeg)
		})
	})

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupTCPListener opens the plain TCP listener on server.http_addr.
func (s *Server) setupTCPListener() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}
	return s.setupTCPListener()
}

// Run serves until ctx is canceled or the server fails, then shuts down gracefully.
// Returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the caller's is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and the tailscale node.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}

	return errors.Join(errs...)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when both race directories are usable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Check(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
