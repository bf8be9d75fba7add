// Package server assembles the session-authentication server: it opens the
// user store, builds the token, password and session components, and runs
// the HTTP and gRPC health endpoints until a signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpserver"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const closeTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      repomanager.RepositoryManager
	httpServer *httpserver.HTTPServer
	grpcServer *gs.GRPCServer
}

// NewApp validates c, opens and initializes the configured store and wires
// every component. The returned App owns the store; Run closes it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(logOut, c.LogLevel)

	tokens, err := auth.NewTokenCodec([]byte(c.SecretKey), c.TokenValidityDuration)
	if err != nil {
		return nil, err
	}

	hasher, err := auth.NewPasswordHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	store, err := repomanager.Open(ctx, c.StoreSettings())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}

	cookie := auth.NewSessionCookie(c.CookieSecure)
	cookie.MaxAge = c.TokenValidityDuration

	resolver := session.NewResolver(tokens, store.Users(), logger,
		session.WithLookupTimeout(c.LookupTimeout),
		session.WithMetrics(m),
		session.WithCookie(cookie),
	)

	us := services.NewUserService(store.Users(), hasher, tokens, logger, m)

	hs := httpserver.NewHTTPServer(c.EndpointAddrHTTP, logger, httpserver.Deps{
		Users:    us,
		Resolver: resolver,
		Guard:    session.NewGuard(resolver),
		Cookie:   cookie,
		Gatherer: reg,
	})

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, store, gs.DefaultCheckInterval)

	return &App{
		config:     c,
		logger:     logger,
		store:      store,
		httpServer: hs,
		grpcServer: grpcServer,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// runServer runs one endpoint; a failing endpoint stops the whole app.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or one of
// the servers fails, then closes the store.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StoreBackend)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", app.grpcServer.Run)
	}()

	wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := app.store.Close(closeCtx); err != nil {
		app.logger.Error(closeCtx, "store close failed", "error", err)
	}

	app.logger.Info(closeCtx, "App stopped")
}
