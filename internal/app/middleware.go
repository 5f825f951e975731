package app

import (
	"github.com/gin-gonic/gin"

	"github.com/kthendral/optimizehub/internal/httpmiddleware"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// wireMiddleware attaches the ambient request-handling chain: CORS,
// request-id propagation, and structured request logging. Submission
// rate limiting is scoped to the two submission routes
// (POST /async/optimize and POST /api/optimize/custom) and attached in
// wireRouter instead of here.
func wireMiddleware(r *gin.Engine, log *logger.Logger) {
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.RequestLogger(log))
}
