// Package catalog implements the Algorithm Runner (C4): capability-
// based dispatch from an algorithm name to a concrete optimization
// handler, benchmark fitness resolution, tsp/knapsack fitness
// construction, and delegation to the Sandbox Executor for
// user-supplied fitness.
//
// Grounded on the teacher's internal/jobs/runtime/registry.go: a
// declarative map[string]Handler, Register/Get, duplicate
// registration rejected — the same shape the spec's §9 "Catalog
// resolution" design note asks for (a registry over reflective
// discovery), renamed from job_type dispatch to algorithm dispatch.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/kthendral/optimizehub/internal/domain"
)

// FitnessFunc evaluates one candidate solution. Errors from it are
// wrapped as domain.KindRuntime by Runner.Run.
type FitnessFunc func(x []float64) (float64, error)

// Handler is the minimal contract an optimization algorithm must
// satisfy to participate in dispatch (§4.4 Resolution: "capability
// check ... rather than a name-pattern heuristic").
//
// Handlers must be side-effect free beyond the returned Result: the
// Worker Pool may retry a job after a transient sandbox error, and a
// handler that mutated shared state on a prior attempt would corrupt
// the retry.
type Handler interface {
	// Type returns the algorithm name this handler answers to. Must
	// exactly match the name clients submit in §6 POST /async/optimize.
	Type() string
	// Run executes the algorithm. ctx carries the job's soft-then-hard
	// deadline (§9 "Open question — cooperative cancellation,
	// resolved"); well-behaved handlers check ctx.Err() between
	// iterations.
	Run(ctx context.Context, problem domain.Problem, params domain.Params, fitness FitnessFunc) (*domain.Result, error)
}

// Registry is a concurrency-safe name -> Handler map.
//
// Invariants:
//   - At most one handler may be registered per algorithm name.
//   - Registration happens at process startup; lookups happen
//     concurrently from every worker goroutine.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry constructs an empty algorithm registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h to the registry. Returns an error if h is nil,
// Type() is empty, or another handler already claims the same name —
// a wiring/config error, not something to silently resolve, per the
// teacher's registry.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("catalog: nil handler")
	}
	name := h.Type()
	if name == "" {
		return fmt.Errorf("catalog: handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("catalog: handler already registered for algorithm=%s", name)
	}
	r.handlers[name] = h
	return nil
}

// Get retrieves the handler for algorithm name, using only the
// declarative map — never a name-suffix heuristic, satisfying §4.4's
// "capability check ... rather than a name-pattern heuristic".
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns every registered algorithm name, for validation at the
// submission boundary ("unknown algorithm" -> domain.KindValidation).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	return out
}
