// package server exposes the conversion engine to a presentation collaborator
// over HTTP.
//
// The collaborator supplies the authenticated user identity in the X-User-ID
// header; session handling and the consent-screen UX stay on its side of the
// boundary. Responses are JSON, with the error taxonomy mapped onto status
// codes: auth 401, validation 400, conflict 409, not found 404, provider
// failures 502.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tunebridge/tunebridge/internal/catalog"
	"github.com/tunebridge/tunebridge/internal/connections"
	"github.com/tunebridge/tunebridge/internal/jobs"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// Server wires the HTTP API over the core engine.
type Server struct {
	manager      *connections.Manager
	catalog      *catalog.Cache
	orchestrator *jobs.Orchestrator
	logger       *log.Logger
	states       *stateStore
}

// NewServer creates an HTTP server over the given core components.
func NewServer(manager *connections.Manager, cat *catalog.Cache, orchestrator *jobs.Orchestrator, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Server{
		manager:      manager,
		catalog:      cat,
		orchestrator: orchestrator,
		logger:       shared.WithLogger(logger, "component", "server"),
		states:       newStateStore(),
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/auth/{provider}", func(r chi.Router) {
		r.Get("/login", s.handleAuthLogin)
		r.Get("/callback", s.handleAuthCallback)
	})

	r.Get("/connections", s.handleConnectionStatus)
	r.Delete("/connections/{provider}", s.handleDisconnect)

	r.Get("/providers/{provider}/playlists", s.handleListPlaylists)

	r.Route("/conversions", func(r chi.Router) {
		r.Post("/", s.handleRequestConversion)
		r.Get("/", s.handleListConversions)
		r.Get("/{id}", s.handleGetConversion)
		r.Delete("/{id}", s.handleCancelConversion)
	})

	return r
}

// ListenAndServe starts the HTTP server on the configured address and shuts
// down gracefully when the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, host string, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
