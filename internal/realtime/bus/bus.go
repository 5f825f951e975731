// Package bus implements the optional cross-process fan-out of Job
// Store change events (§6 configuration "optional Redis change-event
// fan-out", REALTIME_BUS). The in-memory per-id subscriber registry in
// internal/jobstore already satisfies the single-process case; Bus
// exists only for deployments that also want job transitions visible
// to a process other than the one running the worker pool (an
// external audit/observability consumer, a second API replica's
// dashboard). It is a pure outbound/inbound forwarding channel, not a
// second source of truth: a process with no local record for an id
// still cannot poll or resume a subscription for it, consistent with
// §1's non-goal on cluster-wide job distribution.
//
// Grounded on internal/realtime/bus/bus.go's Bus interface shape
// (Publish/StartForwarder/Close), renamed from SSEMessage fan-out to
// job change-event fan-out.
package bus

import "context"

// Event is the wire shape forwarded across the bus. It mirrors
// jobstore.ChangeEvent without importing that package, so bus has no
// dependency on the store and can be reused by any future consumer.
type Event struct {
	JobID string `json:"job_id"`
	Gone  bool   `json:"gone,omitempty"`
	// Job is the encoded domain.Job (same encoding jobstore itself
	// uses), present unless Gone is true.
	Job []byte `json:"job,omitempty"`
}

// Bus is the cross-process change-event channel.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// StartForwarder subscribes and invokes onEvent for every event
	// received from other processes, until ctx is cancelled.
	StartForwarder(ctx context.Context, onEvent func(ev Event)) error
	Close() error
}

// noop is the default Bus used when REALTIME_BUS is unset: publishing
// is a silent no-op and no forwarder ever fires. This keeps the Job
// Store's publish path free of a nil check at every call site.
type noop struct{}

// Noop returns a Bus that does nothing. Used when no REALTIME_BUS
// backend is configured.
func Noop() Bus { return noop{} }

func (noop) Publish(context.Context, Event) error                { return nil }
func (noop) StartForwarder(context.Context, func(ev Event)) error { return nil }
func (noop) Close() error                                         { return nil }
