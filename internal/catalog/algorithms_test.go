package catalog

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/kthendral/optimizehub/internal/domain"
)

func sphereProblem() domain.Problem {
	return domain.Problem{
		N:         3,
		Bounds:    []domain.Bound{{Lo: -5, Hi: 5}, {Lo: -5, Hi: 5}, {Lo: -5, Hi: 5}},
		Objective: domain.Minimize,
	}
}

// assertConvergenceMonotonic checks the convergence curve never regresses
// under problem's objective (§3 invariant 3).
func assertConvergenceMonotonic(t *testing.T, o domain.Objective, curve []float64) {
	t.Helper()
	for i := 1; i < len(curve); i++ {
		if !o.Better(curve[i], curve[i-1]) {
			t.Fatalf("convergence curve regressed at index %d: %v -> %v", i, curve[i-1], curve[i])
		}
	}
}

func TestParticleSwarmHandlerConverges(t *testing.T) {
	h := ParticleSwarmHandler{}
	problem := sphereProblem()
	params := domain.Params{"swarm_size": 10, "max_iterations": 20}
	result, err := h.Run(context.Background(), problem, params, guardNumeric(sphere))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.BestSolution) != problem.N {
		t.Fatalf("BestSolution len = %d, want %d", len(result.BestSolution), problem.N)
	}
	if result.IterationsCompleted != 20 {
		t.Fatalf("IterationsCompleted = %d, want 20", result.IterationsCompleted)
	}
	assertConvergenceMonotonic(t, problem.Objective, result.ConvergenceCurve)
	for d, v := range result.BestSolution {
		if v < problem.Bounds[d].Lo || v > problem.Bounds[d].Hi {
			t.Fatalf("dimension %d out of bounds: %v", d, v)
		}
	}
}

func TestParticleSwarmHandlerRejectsTooSmallSwarm(t *testing.T) {
	h := ParticleSwarmHandler{}
	_, err := h.Run(context.Background(), sphereProblem(), domain.Params{"swarm_size": 1}, guardNumeric(sphere))
	if err == nil {
		t.Fatalf("expected error for swarm_size < 5")
	}
}

func TestGeneticAlgorithmHandlerConverges(t *testing.T) {
	h := GeneticAlgorithmHandler{}
	problem := sphereProblem()
	params := domain.Params{"population_size": 12, "max_iterations": 15}
	result, err := h.Run(context.Background(), problem, params, guardNumeric(sphere))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertConvergenceMonotonic(t, problem.Objective, result.ConvergenceCurve)
	if result.IterationsCompleted != 15 {
		t.Fatalf("IterationsCompleted = %d, want 15", result.IterationsCompleted)
	}
}

func TestSimulatedAnnealingHandlerConverges(t *testing.T) {
	h := SimulatedAnnealingHandler{}
	problem := sphereProblem()
	params := domain.Params{"max_iterations": 30}
	result, err := h.Run(context.Background(), problem, params, guardNumeric(sphere))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertConvergenceMonotonic(t, problem.Objective, result.ConvergenceCurve)
}

func TestAntColonyHandlerConverges(t *testing.T) {
	h := AntColonyHandler{}
	problem := sphereProblem()
	params := domain.Params{"archive_size": 8, "ants": 6, "max_iterations": 15}
	result, err := h.Run(context.Background(), problem, params, guardNumeric(sphere))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertConvergenceMonotonic(t, problem.Objective, result.ConvergenceCurve)
}

func TestAntColonyHandlerRejectsTooSmallArchive(t *testing.T) {
	h := AntColonyHandler{}
	_, err := h.Run(context.Background(), sphereProblem(), domain.Params{"archive_size": 1}, guardNumeric(sphere))
	if err == nil {
		t.Fatalf("expected error for archive_size < 2")
	}
}

func TestDifferentialEvolutionHandlerConverges(t *testing.T) {
	h := DifferentialEvolutionHandler{}
	problem := sphereProblem()
	params := domain.Params{"population_size": 10, "max_iterations": 15}
	result, err := h.Run(context.Background(), problem, params, guardNumeric(sphere))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertConvergenceMonotonic(t, problem.Objective, result.ConvergenceCurve)
}

func TestDifferentialEvolutionHandlerRejectsTooSmallPopulation(t *testing.T) {
	h := DifferentialEvolutionHandler{}
	_, err := h.Run(context.Background(), sphereProblem(), domain.Params{"population_size": 1}, guardNumeric(sphere))
	if err == nil {
		t.Fatalf("expected error for population_size < 4")
	}
}

func TestParticleSwarmHandlerRespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	problem := sphereProblem()
	h := ParticleSwarmHandler{}
	result, err := h.Run(ctx, problem, domain.Params{"swarm_size": 6, "max_iterations": 50}, guardNumeric(sphere))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.IterationsCompleted != 0 {
		t.Fatalf("IterationsCompleted = %d, want 0 on an already-canceled context", result.IterationsCompleted)
	}
}

func TestDistinctTripleNeverRepeatsOrIncludesExclude(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		a, b, c := distinctTriple(rng, 5, 2)
		if a == 2 || b == 2 || c == 2 {
			t.Fatalf("distinctTriple returned excluded index: %d %d %d", a, b, c)
		}
		if a == b || b == c || a == c {
			t.Fatalf("distinctTriple returned non-distinct indices: %d %d %d", a, b, c)
		}
	}
}

func TestGuardNumericRejectsAlgorithmRuntimeNaN(t *testing.T) {
	fn := guardNumeric(func(x []float64) (float64, error) {
		return math.NaN(), nil
	})
	if _, err := fn([]float64{0}); err == nil {
		t.Fatalf("expected NaN fitness to error")
	}
}
