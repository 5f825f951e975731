// Package app wires the async job execution subsystem's components
// (C1-C6) and the §6 HTTP surface into one runnable process, the way
// the teacher's internal/app.New/Start/Run/Close does for its own
// service graph.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kthendral/optimizehub/internal/catalog"
	"github.com/kthendral/optimizehub/internal/httphandlers"
	"github.com/kthendral/optimizehub/internal/jobstore"
	"github.com/kthendral/optimizehub/internal/platform/envutil"
	"github.com/kthendral/optimizehub/internal/platform/logger"
	"github.com/kthendral/optimizehub/internal/realtime/bus"
	"github.com/kthendral/optimizehub/internal/sandbox"
	"github.com/kthendral/optimizehub/internal/streamgateway"
	"github.com/kthendral/optimizehub/internal/worker"
)

// App holds every wired component and the gin engine. Fields are
// exported so cmd/server can report on them (e.g. logging the
// listening port); mutation should only ever happen through the
// methods below.
type App struct {
	Log      *logger.Logger
	Cfg      Config
	Router   *gin.Engine
	Store    *jobstore.Store
	Registry *catalog.Registry
	Sandbox  *sandbox.Executor
	Runner   *catalog.Runner
	Pool     *worker.Pool
	Gateway  *streamgateway.Gateway
	Health   *httphandlers.HealthHandler
	Bus      bus.Bus

	cancel context.CancelFunc
}

// New builds the fully wired App: logger, config, job store, algorithm
// registry, sandbox executor, algorithm runner, worker pool, stream
// gateway, HTTP handlers, and router. It does not start any background
// goroutines; call Start for that.
func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	b, err := wireBus(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init realtime bus: %w", err)
	}

	store, err := jobstore.New(log, jobstore.WithRetention(cfg.RetentionWindow), jobstore.WithBus(b))
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init job store: %w", err)
	}

	registry := catalog.NewRegistry()
	if err := catalog.RegisterBuiltins(registry); err != nil {
		log.Sync()
		return nil, fmt.Errorf("register algorithm catalog: %w", err)
	}

	sandboxExecutor := sandbox.New(log, cfg.Sandbox)
	runner := catalog.NewRunner(registry, sandboxExecutor)
	pool := worker.NewPool(log, store, runner, cfg.Worker)
	gateway := streamgateway.New(log, store, cfg.StreamHeartbeat)
	health := httphandlers.NewHealthHandler()

	handlers := wireHandlers(log, store, registry, pool, gateway, sandboxExecutor, health)
	router := wireRouter(log, cfg, handlers)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Router:   router,
		Store:    store,
		Registry: registry,
		Sandbox:  sandboxExecutor,
		Runner:   runner,
		Pool:     pool,
		Gateway:  gateway,
		Health:   health,
		Bus:      b,
	}, nil
}

func wireBus(log *logger.Logger, cfg Config) (bus.Bus, error) {
	if cfg.RealtimeBus != "redis" {
		return bus.Noop(), nil
	}
	return bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
}

// Start launches the worker pool, the eviction sweep, and (when
// configured) the cross-process bus forwarder, then marks the process
// ready (§6 "readyz returns 200 only once the worker pool has started
// and the job store is accepting writes").
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Pool.Start(ctx)
	go a.Store.RunEvictionSweep(ctx, a.Cfg.EvictionSweepInterval)
	if a.Cfg.RealtimeBus == "redis" {
		go func() {
			if err := a.Store.RunBusForwarder(ctx); err != nil {
				a.Log.Warn("bus forwarder stopped", "error", err.Error())
			}
		}()
	}
	a.Health.MarkReady()
}

// Run starts the HTTP server on addr, blocking until it exits.
func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

// Close cancels every background goroutine started by Start and
// flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
