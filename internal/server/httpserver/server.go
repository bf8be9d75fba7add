// Package httpserver is the fiber front door of the session core: sign-up,
// sign-in, sign-out, a guarded dashboard and the Prometheus endpoint.
package httpserver

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

// HTTPServer serves the routes built by New until its Run context ends.
type HTTPServer struct {
	address string
	app     *fiber.App
	logger  logging.Logger
}

// Deps are the collaborators the handlers call into. Gatherer may be nil,
// in which case /metrics is not mounted.
type Deps struct {
	Users    *services.UserService
	Resolver *session.Resolver
	Guard    *session.Guard
	Cookie   auth.SessionCookie
	Gatherer prometheus.Gatherer
}

func NewHTTPServer(address string, l logging.Logger, deps Deps) *HTTPServer {
	logger := l.With("module", "http_server")
	return &HTTPServer{
		address: address,
		app:     newApp(deps, logger),
		logger:  logger,
	}
}

// App exposes the fiber application, mainly for app.Test in tests.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// Run listens on the configured address and shuts down gracefully when ctx
// is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
