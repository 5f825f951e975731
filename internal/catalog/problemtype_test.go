package catalog

import (
	"testing"

	"github.com/kthendral/optimizehub/internal/domain"
)

func TestTourOrderIsAPermutation(t *testing.T) {
	order := tourOrder([]float64{0.9, 0.1, 0.5, 0.3})
	seen := make(map[int]bool, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(order) {
			t.Fatalf("index %d out of range", idx)
		}
		if seen[idx] {
			t.Fatalf("duplicate index %d in tour order", idx)
		}
		seen[idx] = true
	}
	want := []int{1, 3, 2, 0}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBuildTSPFitnessForcesCanonicalBoundsAndObjective(t *testing.T) {
	p := domain.Problem{
		ProblemType: "tsp",
		TSP: &domain.TSPData{
			Cities: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		},
	}
	fn, bounds, objective, err := buildProblemTypeFitness(p)
	if err != nil {
		t.Fatalf("buildProblemTypeFitness: %v", err)
	}
	if objective != domain.Minimize {
		t.Fatalf("objective = %v, want Minimize", objective)
	}
	if len(bounds) != 4 {
		t.Fatalf("bounds len = %d, want 4", len(bounds))
	}
	for _, b := range bounds {
		if b.Lo != 0 || b.Hi != 1 {
			t.Fatalf("bound = %+v, want [0,1]", b)
		}
	}
	// A square visited in corner order has perimeter 4.
	dist, err := fn([]float64{0.1, 0.2, 0.3, 0.4})
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if dist < 3.99 || dist > 4.01 {
		t.Fatalf("tour distance = %v, want ~4", dist)
	}
}

func TestBuildTSPFitnessRejectsTooFewCities(t *testing.T) {
	p := domain.Problem{ProblemType: "tsp", TSP: &domain.TSPData{Cities: [][2]float64{{0, 0}}}}
	if _, _, _, err := buildProblemTypeFitness(p); err == nil {
		t.Fatalf("expected error for single-city tsp")
	}
}

func TestBuildKnapsackFitnessRespectsCapacityPenalty(t *testing.T) {
	p := domain.Problem{
		ProblemType: "knapsack",
		Knapsack: &domain.KnapsackData{
			Weights:  []float64{5, 5},
			Values:   []float64{10, 10},
			Capacity: 5,
		},
	}
	fn, bounds, objective, err := buildProblemTypeFitness(p)
	if err != nil {
		t.Fatalf("buildProblemTypeFitness: %v", err)
	}
	if objective != domain.Maximize {
		t.Fatalf("objective = %v, want Maximize", objective)
	}
	if len(bounds) != 2 {
		t.Fatalf("bounds len = %d, want 2", len(bounds))
	}
	// Selecting both items overflows capacity and should be penalized
	// below the single-item value.
	both, err := fn([]float64{0.9, 0.9})
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	one, err := fn([]float64{0.9, 0.1})
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if both >= one {
		t.Fatalf("overcapacity selection (%v) should be penalized below a feasible one (%v)", both, one)
	}
}

func TestBuildKnapsackFitnessRejectsMismatchedLengths(t *testing.T) {
	p := domain.Problem{
		ProblemType: "knapsack",
		Knapsack: &domain.KnapsackData{
			Weights:  []float64{1, 2},
			Values:   []float64{1},
			Capacity: 5,
		},
	}
	if _, _, _, err := buildProblemTypeFitness(p); err == nil {
		t.Fatalf("expected error for mismatched weights/values length")
	}
}

func TestBuildProblemTypeFitnessUnknownType(t *testing.T) {
	p := domain.Problem{ProblemType: "bin_packing"}
	if _, _, _, err := buildProblemTypeFitness(p); err == nil {
		t.Fatalf("expected error for unknown problem_type")
	}
}
