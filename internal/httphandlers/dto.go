// Package httphandlers implements the §6 HTTP surface: the gin
// handlers for job submission, polling, streaming, the synchronous
// sandbox entry point, group lookup, and the liveness/readiness pair.
//
// Grounded on the teacher's internal/http/handlers package: one
// handler type per concern, constructed with its dependencies and
// registered onto the router by internal/app, translation of
// service-layer errors into the shared response envelope at the
// handler boundary only.
package httphandlers

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kthendral/optimizehub/internal/catalog"
	"github.com/kthendral/optimizehub/internal/domain"
)

// boundPair decodes either wire shape a client might send for one
// dimension's bounds: the tuple form `[lo, hi]` used throughout §8's
// worked examples, or the object form `{"lo":, "hi":}` matching
// domain.Bound's own JSON tags. Accepting both avoids forcing every
// client integration onto one literal example from the spec.
type boundPair domain.Bound

func (b *boundPair) UnmarshalJSON(data []byte) error {
	var tuple [2]float64
	if err := json.Unmarshal(data, &tuple); err == nil {
		b.Lo, b.Hi = tuple[0], tuple[1]
		return nil
	}
	var obj struct {
		Lo float64 `json:"lo"`
		Hi float64 `json:"hi"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bound must be [lo, hi] or {\"lo\":,\"hi\":}: %w", err)
	}
	b.Lo, b.Hi = obj.Lo, obj.Hi
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for config_file's YAML bounds
// (§6 "config_file ... parsed with gopkg.in/yaml.v3"), accepting the
// same tuple or object shape.
func (b *boundPair) UnmarshalYAML(value *yaml.Node) error {
	var tuple [2]float64
	if err := value.Decode(&tuple); err == nil {
		b.Lo, b.Hi = tuple[0], tuple[1]
		return nil
	}
	var obj struct {
		Lo float64 `yaml:"lo"`
		Hi float64 `yaml:"hi"`
	}
	if err := value.Decode(&obj); err != nil {
		return fmt.Errorf("bound must be [lo, hi] or {lo:, hi:}: %w", err)
	}
	b.Lo, b.Hi = obj.Lo, obj.Hi
	return nil
}

// problemRequest is the wire shape of §3's Problem descriptor as
// submitted in POST /async/optimize and POST /api/optimize/custom's
// config_file. FitnessKind is never submitted directly: it is
// inferred from which of fitness/problem_type is present, since the
// client-facing descriptor only ever uses one selector at a time.
type problemRequest struct {
	N           int           `json:"n" yaml:"n"`
	Bounds      []boundPair   `json:"bounds" yaml:"bounds"`
	Objective   string        `json:"objective" yaml:"objective"`
	Fitness     string        `json:"fitness" yaml:"fitness"`
	ProblemType string        `json:"problem_type" yaml:"problem_type"`
	TSP         *domain.TSPData      `json:"tsp" yaml:"tsp"`
	Knapsack    *domain.KnapsackData `json:"knapsack" yaml:"knapsack"`
}

// toDomain converts the wire descriptor to domain.Problem, inferring
// FitnessKind, or returns a validation error naming the first problem
// found (§7 KindValidation "malformed submission").
func (p problemRequest) toDomain() (domain.Problem, error) {
	out := domain.Problem{
		N:         p.N,
		Objective: domain.Objective(p.Objective),
	}
	for _, b := range p.Bounds {
		out.Bounds = append(out.Bounds, domain.Bound(b))
	}

	switch {
	case p.ProblemType != "":
		out.FitnessKind = domain.FitnessProblemType
		out.ProblemType = p.ProblemType
		out.TSP = p.TSP
		out.Knapsack = p.Knapsack
	case p.Fitness != "":
		out.FitnessKind = domain.FitnessBenchmark
		out.BenchmarkName = p.Fitness
	default:
		return domain.Problem{}, fmt.Errorf("problem must set either fitness or problem_type")
	}

	if err := validateProblem(out); err != nil {
		return domain.Problem{}, err
	}
	return out, nil
}

// toDomainUserSupplied converts the wire descriptor for the
// POST /api/optimize/custom path, where the fitness selector is
// always the validated source text rather than a benchmark/problem
// type (§6 "the sandbox entry").
func (p problemRequest) toDomainUserSupplied(source string) (domain.Problem, error) {
	out := domain.Problem{
		N:           p.N,
		Objective:   domain.Objective(p.Objective),
		FitnessKind: domain.FitnessUserSupplied,
		UserSource:  source,
	}
	for _, b := range p.Bounds {
		out.Bounds = append(out.Bounds, domain.Bound(b))
	}
	if err := validateProblem(out); err != nil {
		return domain.Problem{}, err
	}
	return out, nil
}

// validateProblem checks the structural invariants §6 requires the
// submission boundary to reject synchronously (400/422), independent
// of algorithm/parameter validation which happens per-algorithm during
// dispatch (§4.4).
func validateProblem(p domain.Problem) error {
	if p.FitnessKind == domain.FitnessProblemType {
		return nil // tsp/knapsack force their own N/bounds/objective (§4.4 Resolution).
	}
	if p.N <= 0 {
		return fmt.Errorf("problem.n must be a positive integer")
	}
	if len(p.Bounds) != p.N {
		return fmt.Errorf("problem.bounds must have exactly n=%d entries, got %d", p.N, len(p.Bounds))
	}
	for i, b := range p.Bounds {
		if b.Lo > b.Hi {
			return fmt.Errorf("problem.bounds[%d]: lo (%v) must be <= hi (%v)", i, b.Lo, b.Hi)
		}
	}
	if p.Objective != domain.Minimize && p.Objective != domain.Maximize {
		return fmt.Errorf("problem.objective must be %q or %q", domain.Minimize, domain.Maximize)
	}
	if p.FitnessKind == domain.FitnessBenchmark {
		if _, ok := catalog.BenchmarkFitness(p.BenchmarkName); !ok {
			return fmt.Errorf("problem.fitness: unknown benchmark %q", p.BenchmarkName)
		}
	}
	return nil
}

// optimizeRequest is the body of POST /async/optimize (§6).
type optimizeRequest struct {
	Problem    map[string]any `json:"problem"`
	Algorithms []string       `json:"algorithms"`
	Params     domain.Params  `json:"params"`
}

// optimizeResponse is the §6 POST /async/optimize 200 response.
type optimizeResponse struct {
	GroupID  string   `json:"group_id"`
	TaskIDs  []string `json:"task_ids"`
}

// taskResponse is the §6 GET /async/tasks/{id} single-shot poll
// response.
type taskResponse struct {
	TaskID string           `json:"task_id"`
	State  string           `json:"state"`
	Result *domain.Result   `json:"result,omitempty"`
	Error  *domain.JobError `json:"error,omitempty"`
}

// groupResponse is the §6 GET /async/groups/{group_id} response.
type groupResponse struct {
	GroupID string   `json:"group_id"`
	TaskIDs []string `json:"task_ids"`
}
