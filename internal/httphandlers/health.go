package httphandlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves GET /healthz and GET /readyz (§6, ambient
// operational surface carried regardless of §1's non-goals).
type HealthHandler struct {
	ready atomic.Bool
}

// NewHealthHandler builds a HealthHandler that is not ready until
// MarkReady is called.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// MarkReady flips readiness once the worker pool has started and the
// job store is accepting writes (§6 "readyz returns 200 only once...").
func (h *HealthHandler) MarkReady() {
	h.ready.Store(true)
}

// Healthz always returns 200 once the process is up.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz returns 200 only once MarkReady has been called, 503 until
// then.
func (h *HealthHandler) Readyz(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
