// Package streamgateway implements the Progress Stream Gateway (C6):
// translating the Job Store's per-id change stream into a long-lived
// server-sent-events HTTP response.
//
// Grounded on internal/sse/hub.go's ServeHTTP (heartbeat ticker +
// http.Flusher flush loop, text/event-stream framing), adapted from a
// channel/topic broadcast hub to a per-job-id subscribe-through-the-
// store model: there is no hub or registered-client set here, only a
// direct jobstore.Subscribe per connection.
package streamgateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/jobstore"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// Gateway is the Progress Stream Gateway.
type Gateway struct {
	log               *logger.Logger
	store             *jobstore.Store
	heartbeatInterval time.Duration
}

// New builds a Gateway over store. heartbeatInterval must be ≤30s per
// §4.6 step 4; callers pass the configured value.
func New(log *logger.Logger, store *jobstore.Store, heartbeatInterval time.Duration) *Gateway {
	return &Gateway{
		log:               log.With("component", "StreamGateway"),
		store:             store,
		heartbeatInterval: heartbeatInterval,
	}
}

// frame is one JSON document per event (§4.6 step 3).
type frame struct {
	State     string           `json:"state"`
	Result    *domain.Result   `json:"result,omitempty"`
	Error     *domain.JobError `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func frameFromEvent(ev jobstore.ChangeEvent) frame {
	if ev.Gone {
		return frame{State: "unknown", Timestamp: time.Now()}
	}
	f := frame{State: string(ev.Job.State), Timestamp: time.Now()}
	if ev.Job.Result != nil {
		f.Result = ev.Job.Result
	}
	if ev.Job.Error != nil {
		f.Error = ev.Job.Error
	}
	return f
}

// Stream serves the long-lived push response for job id over c (§4.6
// Operation). It returns once the subscription ends: terminal state
// reached, the id was never known, or the client disconnected.
func (g *Gateway) Stream(c *gin.Context, id uuid.UUID) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := c.Request.Context()
	events := g.store.Subscribe(ctx, id)

	heartbeat := time.NewTicker(g.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			f := frameFromEvent(ev)
			encoded, err := json.Marshal(f)
			if err != nil {
				g.log.Warn("failed to marshal stream frame", "job_id", id.String(), "error", err.Error())
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", encoded)
			flusher.Flush()
			if ev.Gone || (ev.Job != nil && ev.Job.State.Terminal()) {
				return
			}
		}
	}
}
