// Package app assembles the shelfkeeper server runtime: the HTTP and
// WebSocket surface, the job supervisor and the event relay between them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/httpx"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/relay"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/ws"
	"github.com/shelfkeeper/shelfkeeper/pkg/version"
)

// DefaultShutdownTimeout bounds graceful shutdown, including the wait for a
// cancelled worker to exit.
const DefaultShutdownTimeout = 30 * time.Second

// App orchestrates the server runtime components:
// - HTTP server (REST + WebSocket)
// - Job supervisor and the relay feeding the session registry
// - Lifecycle management
type App struct {
	HTTP     *http.Server
	Jobs     *jobs.Supervisor
	Sessions *ws.Registry
	Users    *auth.Table
	Ready    *atomic.Bool
	Config   config.Config
	Deps     *Deps

	ShutdownTimeout time.Duration

	bus     *event.Bus
	boundTo atomic.Value // string
}

// New creates and configures a new server application.
func New(ctx context.Context, cfg config.Config, deps *Deps) (*App, error) {
	if deps == nil {
		return nil, errors.New("app: deps are required")
	}
	logger := deps.Logger
	logger.Info().Msg("Initializing server application")

	bus := deps.Bus
	if bus == nil {
		bus = event.New()
	}

	users := auth.NewTable(cfg.Server.Auth, logger)
	users.Subscribe(bus)

	registry := ws.NewRegistry(logger)

	launcher := deps.Launcher
	if launcher == nil {
		launcher = jobs.NewProcessLauncher(cfg.Jobs.WorkerPath, jobs.WorkerArgs(cfg.Library, cfg.Jobs.RefreshAll), logger)
	}
	supervisor := jobs.NewSupervisor(launcher, relay.New(registry, logger),
		jobs.WithLogger(logger),
		jobs.WithCancelTimeout(cfg.Jobs.CancelTimeout),
	)

	settings := func() config.Config { return cfg }
	if deps.Config != nil {
		settings = deps.Config.Get
	}

	ready := &atomic.Bool{}
	apiDeps := &api.Deps{
		Jobs:     supervisor,
		Sessions: registry,
		Settings: settings,
		Config:   api.DefaultConfig(),
		Ready:    ready,
	}

	wsHandler := ws.NewHandler(registry, supervisor, cfg.Server.WS, users.Enabled, logger)
	router := httpx.NewRouter(apiDeps, wsHandler)

	if users.Enabled() {
		logger.Info().Int("users", len(cfg.Server.Auth.Users)).Msg("Token authentication enabled")
	} else {
		logger.Warn().Msg("Authentication disabled, every client acts as admin")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Addr, fmt.Sprint(cfg.Server.Port)),
		Handler:      httpx.Chain(users, router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	return &App{
		HTTP:            httpServer,
		Jobs:            supervisor,
		Sessions:        registry,
		Users:           users,
		Ready:           ready,
		Config:          cfg,
		Deps:            deps,
		ShutdownTimeout: DefaultShutdownTimeout,
		bus:             bus,
	}, nil
}

// Addr returns the address the server listens on once Run has bound it,
// or the configured address before that.
func (a *App) Addr() string {
	if v, ok := a.boundTo.Load().(string); ok {
		return v
	}
	return a.HTTP.Addr
}

// Reload re-reads the configuration and publishes it to subscribers such as
// the user table. Settings that shape listeners or the worker command line
// take effect on the next start.
func (a *App) Reload(ctx context.Context) error {
	if a.Deps.Config == nil {
		return errors.New("app: no config manager to reload")
	}
	cfg, err := a.Deps.Config.ReloadValidated()
	if err != nil {
		return err
	}
	a.bus.Publish(ctx, event.TopicConfigReloaded, cfg)
	return nil
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. Shutdown is graceful: a running worker is asked to terminate first.
func (a *App) Run(ctx context.Context) error {
	logger := a.Deps.Logger

	ln, err := net.Listen("tcp", a.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.HTTP.Addr, err)
	}
	a.boundTo.Store(ln.Addr().String())

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("version", version.Version).
		Str("library", a.Config.Library.Root).
		Bool("auth", a.Users.Enabled()).
		Msg("Starting shelfkeeper server")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.HTTP.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if a.Deps.Config != nil && a.Deps.Config.ConfigFile() != "" {
		watcher, err := config.NewWatcher(a.Deps.Config, a.bus, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Config watcher unavailable, reload requires restart")
		} else {
			g.Go(func() error {
				if err := watcher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn().Err(err).Msg("Config watcher stopped")
				}
				return nil
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info().Msg("Shutdown signal received")
		}
		return a.shutdown()
	})

	a.Ready.Store(true)
	logger.Info().Msg("Server is ready and accepting connections")

	return g.Wait()
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	logger := a.Deps.Logger
	logger.Info().Msg("Initiating graceful shutdown")

	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Ready.Store(false)

	var errs []error

	logger.Info().Msg("Shutting down HTTP server...")
	if err := a.HTTP.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// Sessions stay open until the worker is gone so they receive its
	// final events.
	logger.Info().Msg("Stopping job supervisor...")
	if err := a.Jobs.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Job supervisor shutdown failed")
		errs = append(errs, fmt.Errorf("jobs shutdown: %w", err))
	}

	a.Sessions.CloseAll()
	a.bus.Wait()

	logger.Info().Msg("Server shutdown complete")
	return errors.Join(errs...)
}
