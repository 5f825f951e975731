package app

import (
	"github.com/gin-gonic/gin"

	"github.com/kthendral/optimizehub/internal/httpmiddleware"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// wireRouter registers the §6 HTTP surface: job submission, polling,
// grouping, the SSE stream, the custom-algorithm sandbox route, and
// the ambient health/readiness endpoints.
func wireRouter(log *logger.Logger, cfg Config, h handlerSet) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	wireMiddleware(r, log)

	r.GET("/healthz", h.health.Healthz)
	r.GET("/readyz", h.health.Readyz)

	submitLimit := httpmiddleware.SubmitRateLimit(cfg.SubmitRatePerSec, cfg.SubmitRateBurst)

	async := r.Group("/async")
	{
		async.POST("/optimize", submitLimit, h.optimize.Submit)
		async.GET("/tasks/:id", h.optimize.Poll)
		async.GET("/groups/:group_id", h.optimize.Group)
	}

	api := r.Group("/api")
	{
		api.GET("/async/tasks/:id/stream", h.stream.Stream)
		api.POST("/optimize/custom", submitLimit, h.custom.Execute)
	}

	return r
}
