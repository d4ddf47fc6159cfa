// Package server exposes the bot over HTTP: the messaging platform
// webhook, an optional token-protected admin API and its docs.
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

	"github.com/playperu/scavengerbot/internal/handler/health"
	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
)

// Conversations is the part of the engine the HTTP layer drives.
type Conversations interface {
	Handle(ctx context.Context, ev messenger.Event) error
	Progress(ctx context.Context, senderID string) (hunt.Progress, hunt.State, error)
	Reset(ctx context.Context, senderID string) error
}

type Deps struct {
	Conversations Conversations
	Catalog       hunt.CityCatalog
	Broker        *Broker
	Checks        map[string]health.Checker

	AppSecret   string
	VerifyToken string
	// AdminTokenHash is a bcrypt hash; the admin API is not mounted when empty.
	AdminTokenHash string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, deps Deps) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newRouter(logger, deps),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func newRouter(logger *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	addRoutes(r, logger, deps)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
