package httpmiddleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/httpresponse"
)

// SubmitRateLimit shapes the rate of accepted submissions independent
// of queue-capacity rejection (§4.5 Backpressure, §9B domain stack).
// A single process-wide token bucket is sufficient: the spec's
// non-goal on multi-tenant rate limiting excludes per-client shaping,
// this is host-wide throughput protection.
func SubmitRateLimit(perSecond float64, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !lim.Allow() {
			httpresponse.RespondErrorStatus(c, http.StatusTooManyRequests, domain.KindValidation,
				"submission rate exceeded, retry after a short delay")
			c.Abort()
			return
		}
		c.Next()
	}
}
