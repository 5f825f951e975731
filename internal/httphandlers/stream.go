package httphandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/httpresponse"
)

// Streamer is the capability StreamHandler needs from the Progress
// Stream Gateway (C6).
type Streamer interface {
	Stream(c *gin.Context, id uuid.UUID)
}

// StreamHandler serves GET /api/async/tasks/{id}/stream (§6), a thin
// adapter that parses the path parameter and delegates framing and
// the push loop entirely to the gateway.
type StreamHandler struct {
	gateway Streamer
}

// NewStreamHandler builds a StreamHandler over gateway.
func NewStreamHandler(gateway Streamer) *StreamHandler {
	return &StreamHandler{gateway: gateway}
}

func (h *StreamHandler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusNotFound, domain.KindUnknownJob, "invalid task id")
		return
	}
	h.gateway.Stream(c, id)
}
