package catalog

import (
	"fmt"
	"math"

	"github.com/kthendral/optimizehub/internal/domain"
)

// buildProblemTypeFitness constructs the fitness closure for a
// problem-type descriptor ("tsp" or "knapsack") from its auxiliary
// data, and returns the canonical bounds/objective that must be
// forced onto the problem before dispatch (§4.4: "force bounds and
// objective to the canonical values for that problem type").
//
// Decoding the resulting best_solution back into a tour or item
// selection is explicitly out of scope (§1 "Problem-specific
// decoding ... a pure post-processing pass over a result record") —
// this stays inside the core only far enough to produce a Result
// whose best_solution an external decoder can consume.
func buildProblemTypeFitness(p domain.Problem) (FitnessFunc, []domain.Bound, domain.Objective, error) {
	switch p.ProblemType {
	case "tsp":
		return buildTSPFitness(p)
	case "knapsack":
		return buildKnapsackFitness(p)
	default:
		return nil, nil, "", fmt.Errorf("catalog: unknown problem_type %q", p.ProblemType)
	}
}

// buildTSPFitness encodes a tour as a permutation key: one real per
// city, sorted ascending to induce a visiting order. This keeps the
// representation continuous (real-valued vectors), matching the
// uniform algorithm contract in §1, while the actual tour
// reconstruction is left to the external decoder.
func buildTSPFitness(p domain.Problem) (FitnessFunc, []domain.Bound, domain.Objective, error) {
	if p.TSP == nil || len(p.TSP.Cities) < 2 {
		return nil, nil, "", fmt.Errorf("catalog: tsp problem requires at least 2 cities")
	}
	cities := p.TSP.Cities
	n := len(cities)

	fn := func(x []float64) (float64, error) {
		if len(x) != n {
			return 0, fmt.Errorf("catalog: tsp fitness expected %d dims, got %d", n, len(x))
		}
		order := tourOrder(x)
		dist := 0.0
		for i := 0; i < len(order); i++ {
			a := cities[order[i]]
			b := cities[order[(i+1)%len(order)]]
			dx, dy := a[0]-b[0], a[1]-b[1]
			dist += math.Hypot(dx, dy)
		}
		return dist, nil
	}

	bounds := make([]domain.Bound, n)
	for i := range bounds {
		bounds[i] = domain.Bound{Lo: 0, Hi: 1}
	}
	return fn, bounds, domain.Minimize, nil
}

// tourOrder returns the permutation of city indices induced by
// sorting x ascending (the standard "random key" TSP encoding).
func tourOrder(x []float64) []int {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	// insertion sort: problem sizes here are small (dozens of cities),
	// and it keeps this package free of an extra sort-with-closure
	// allocation pattern per call.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && x[order[j-1]] > x[order[j]] {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	return order
}

// buildKnapsackFitness treats each dimension as a fractional
// inclusion weight in [0,1]; values above 0.5 are treated as
// "selected" for capacity accounting while the fitness itself is
// continuous so gradient-free metaheuristics can still make
// progress. Exceeding capacity is penalized rather than rejected
// outright, keeping the fitness defined everywhere in the bounded
// domain.
func buildKnapsackFitness(p domain.Problem) (FitnessFunc, []domain.Bound, domain.Objective, error) {
	if p.Knapsack == nil || len(p.Knapsack.Weights) == 0 || len(p.Knapsack.Weights) != len(p.Knapsack.Values) {
		return nil, nil, "", fmt.Errorf("catalog: knapsack problem requires equal-length weights and values")
	}
	k := p.Knapsack
	n := len(k.Weights)

	fn := func(x []float64) (float64, error) {
		if len(x) != n {
			return 0, fmt.Errorf("catalog: knapsack fitness expected %d dims, got %d", n, len(x))
		}
		totalValue, totalWeight := 0.0, 0.0
		for i, xi := range x {
			if xi > 0.5 {
				totalValue += k.Values[i]
				totalWeight += k.Weights[i]
			}
		}
		if totalWeight > k.Capacity {
			over := totalWeight - k.Capacity
			totalValue -= over * 1000 // steep penalty, keeps it feasible-seeking
		}
		// Objective is maximize; the handlers in this package compare
		// fitness values under the problem's objective, so this
		// closure returns the true (un-negated) value.
		return totalValue, nil
	}

	bounds := make([]domain.Bound, n)
	for i := range bounds {
		bounds[i] = domain.Bound{Lo: 0, Hi: 1}
	}
	return fn, bounds, domain.Maximize, nil
}
