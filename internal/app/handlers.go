package app

import (
	"github.com/kthendral/optimizehub/internal/catalog"
	"github.com/kthendral/optimizehub/internal/httphandlers"
	"github.com/kthendral/optimizehub/internal/jobstore"
	"github.com/kthendral/optimizehub/internal/platform/logger"
	"github.com/kthendral/optimizehub/internal/sandbox"
	"github.com/kthendral/optimizehub/internal/streamgateway"
	"github.com/kthendral/optimizehub/internal/validator"
	"github.com/kthendral/optimizehub/internal/worker"
)

// handlerSet bundles every wired HTTP handler so wireRouter can
// register routes without knowing how each one was constructed.
type handlerSet struct {
	optimize *httphandlers.OptimizeHandler
	stream   *httphandlers.StreamHandler
	custom   *httphandlers.CustomHandler
	health   *httphandlers.HealthHandler
}

func wireHandlers(
	log *logger.Logger,
	store *jobstore.Store,
	registry *catalog.Registry,
	pool *worker.Pool,
	gateway *streamgateway.Gateway,
	sandboxExecutor *sandbox.Executor,
	health *httphandlers.HealthHandler,
) handlerSet {
	return handlerSet{
		optimize: httphandlers.NewOptimizeHandler(log, store, pool, registry),
		stream:   httphandlers.NewStreamHandler(gateway),
		custom:   httphandlers.NewCustomHandler(log, validator.Validate, sandboxExecutor),
		health:   health,
	}
}
