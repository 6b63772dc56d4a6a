package server

import (
	"context"
	"net/http"
	"time"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/config"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/handlers"
	"github.com/ahorrofamiliar/ahorro-be/internal/middleware"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/provision"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, identities storage.IdentityStore, records storage.RecordStore, log *logger.Logger) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	gateway := auth.NewGateway(tokens, identities, records)
	provisioner := provision.NewService(identities, records, log)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewLoginHandler(identities, records, tokens, log).Register(mux)
	handlers.NewMeHandler(gateway, records, log).Register(mux)
	handlers.NewMembersHandler(gateway, provisioner, log).Register(mux)
	handlers.NewUsersHandler(gateway, provisioner, log).Register(mux)
	handlers.NewAportesHandler(gateway, records, log).Register(mux)
	handlers.NewSummaryHandler(gateway, records, log).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
