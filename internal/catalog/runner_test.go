package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kthendral/optimizehub/internal/domain"
)

type stubSandbox struct {
	result *domain.Result
	err    *domain.JobError
}

func (s stubSandbox) Execute(ctx context.Context, req domain.SandboxRequest) (*domain.Result, *domain.JobError) {
	return s.result, s.err
}

func newRunnerWithBuiltins(t *testing.T, sandbox SandboxExecutor) *Runner {
	t.Helper()
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return NewRunner(reg, sandbox)
}

func TestRunnerDispatchesBenchmarkJob(t *testing.T) {
	r := newRunnerWithBuiltins(t, nil)
	job := &domain.Job{
		ID:        uuid.New(),
		Algorithm: "particle_swarm",
		Problem: domain.Problem{
			N:           2,
			Bounds:      []domain.Bound{{Lo: -5, Hi: 5}, {Lo: -5, Hi: 5}},
			Objective:   domain.Minimize,
			FitnessKind: domain.FitnessBenchmark,
			BenchmarkName: "sphere",
		},
		Params: domain.Params{"swarm_size": 8, "max_iterations": 10},
	}
	result, jerr := r.Run(context.Background(), job)
	if jerr != nil {
		t.Fatalf("unexpected job error: %v", jerr)
	}
	if result.AlgorithmDisplayName != "particle_swarm" {
		t.Fatalf("AlgorithmDisplayName = %q, want particle_swarm", result.AlgorithmDisplayName)
	}
}

func TestRunnerRejectsUnknownAlgorithm(t *testing.T) {
	r := newRunnerWithBuiltins(t, nil)
	job := &domain.Job{
		ID:        uuid.New(),
		Algorithm: "not_a_real_algorithm",
		Problem: domain.Problem{
			FitnessKind:   domain.FitnessBenchmark,
			BenchmarkName: "sphere",
		},
	}
	_, jerr := r.Run(context.Background(), job)
	if jerr == nil || jerr.Kind != domain.KindValidation {
		t.Fatalf("expected validation error, got %+v", jerr)
	}
}

func TestRunnerRejectsUnknownBenchmarkName(t *testing.T) {
	r := newRunnerWithBuiltins(t, nil)
	job := &domain.Job{
		ID:        uuid.New(),
		Algorithm: "particle_swarm",
		Problem: domain.Problem{
			FitnessKind:   domain.FitnessBenchmark,
			BenchmarkName: "not_a_benchmark",
		},
	}
	_, jerr := r.Run(context.Background(), job)
	if jerr == nil || jerr.Kind != domain.KindValidation {
		t.Fatalf("expected validation error, got %+v", jerr)
	}
}

func TestRunnerDelegatesUserSuppliedToSandbox(t *testing.T) {
	want := &domain.Result{BestFitness: 1.23}
	r := newRunnerWithBuiltins(t, stubSandbox{result: want})
	job := &domain.Job{
		ID:        uuid.New(),
		Algorithm: "particle_swarm",
		Problem: domain.Problem{
			FitnessKind: domain.FitnessUserSupplied,
			UserSource:  "def fitness(x):\n    return sum(xi*xi for xi in x)\n",
		},
	}
	result, jerr := r.Run(context.Background(), job)
	if jerr != nil {
		t.Fatalf("unexpected job error: %v", jerr)
	}
	if result.BestFitness != want.BestFitness {
		t.Fatalf("BestFitness = %v, want %v", result.BestFitness, want.BestFitness)
	}
}

func TestRunnerReturnsContainerErrorWhenSandboxMissing(t *testing.T) {
	r := newRunnerWithBuiltins(t, nil)
	job := &domain.Job{
		ID:        uuid.New(),
		Algorithm: "particle_swarm",
		Problem: domain.Problem{
			FitnessKind: domain.FitnessUserSupplied,
			UserSource:  "def fitness(x):\n    return 0\n",
		},
	}
	_, jerr := r.Run(context.Background(), job)
	if jerr == nil || jerr.Kind != domain.KindContainer {
		t.Fatalf("expected container error, got %+v", jerr)
	}
}

func TestRunnerDispatchesProblemTypeJobAndForcesCanonicalBounds(t *testing.T) {
	r := newRunnerWithBuiltins(t, nil)
	job := &domain.Job{
		ID:        uuid.New(),
		Algorithm: "genetic_algorithm",
		Problem: domain.Problem{
			FitnessKind: domain.FitnessProblemType,
			ProblemType: "tsp",
			TSP: &domain.TSPData{
				Cities: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
			},
		},
		Params: domain.Params{"population_size": 8, "max_iterations": 10},
	}
	result, jerr := r.Run(context.Background(), job)
	if jerr != nil {
		t.Fatalf("unexpected job error: %v", jerr)
	}
	if len(result.BestSolution) != 4 {
		t.Fatalf("BestSolution len = %d, want 4", len(result.BestSolution))
	}
}
