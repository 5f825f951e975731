package catalog

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/kthendral/optimizehub/internal/domain"
)

// The handlers in this file are reference implementations of the
// optimization kernels §1 declares out of scope ("pure numeric
// kernels ... assumed to expose a uniform contract"). They exist so
// the registry (§9 "Catalog resolution") and the end-to-end scenarios
// in §8 have something concrete to dispatch to; a deployment is free
// to replace any of them with a richer external implementation behind
// the same Handler interface.

// better reports whether candidate improves on incumbent under o,
// used to maintain a monotonic convergence curve (§3 invariant 3)
// regardless of which individual direction an iteration explores.
func better(o domain.Objective, candidate, incumbent float64) bool {
	if o == domain.Maximize {
		return candidate > incumbent
	}
	return candidate < incumbent
}

// worstSeed returns a starting incumbent value that any real
// evaluation will beat, seeding the convergence-curve search.
func worstSeed(o domain.Objective) float64 {
	if o == domain.Maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func randomPoint(rng *rand.Rand, bounds []domain.Bound) []float64 {
	x := make([]float64, len(bounds))
	for i, b := range bounds {
		x[i] = b.Lo + rng.Float64()*(b.Hi-b.Lo)
	}
	return x
}

func cloneVec(x []float64) []float64 {
	return append([]float64(nil), x...)
}

// scored pairs a candidate solution with its evaluated fitness. Shared
// across the population-based handlers below so the selection/sorting
// helpers operate on one named type instead of each handler declaring
// its own locally-scoped lookalike.
type scored struct {
	x   []float64
	fit float64
}

// --- Particle Swarm Optimization ---

type ParticleSwarmHandler struct{}

func (ParticleSwarmHandler) Type() string { return "particle_swarm" }

func (ParticleSwarmHandler) Run(ctx context.Context, problem domain.Problem, params domain.Params, fitness FitnessFunc) (*domain.Result, error) {
	swarmSize := paramInt(params, "swarm_size", 30)
	maxIter := paramInt(params, "max_iterations", 50)
	w := paramFloat(params, "w", 0.7)
	c1 := paramFloat(params, "c1", 1.5)
	c2 := paramFloat(params, "c2", 1.5)
	if swarmSize < 5 {
		return nil, fmt.Errorf("swarm_size must be >= 5")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	n := len(problem.Bounds)

	positions := make([][]float64, swarmSize)
	velocities := make([][]float64, swarmSize)
	personalBest := make([][]float64, swarmSize)
	personalBestFit := make([]float64, swarmSize)

	globalBest := make([]float64, n)
	globalBestFit := worstSeed(problem.Objective)

	for i := 0; i < swarmSize; i++ {
		positions[i] = randomPoint(rng, problem.Bounds)
		velocities[i] = make([]float64, n)
		f, err := fitness(positions[i])
		if err != nil {
			return nil, err
		}
		personalBest[i] = cloneVec(positions[i])
		personalBestFit[i] = f
		if better(problem.Objective, f, globalBestFit) {
			globalBestFit = f
			globalBest = cloneVec(positions[i])
		}
	}

	curve := make([]float64, 0, maxIter)
	iterations := 0
	for it := 0; it < maxIter; it++ {
		if ctx.Err() != nil {
			break
		}
		for i := 0; i < swarmSize; i++ {
			for d := 0; d < n; d++ {
				r1, r2 := rng.Float64(), rng.Float64()
				velocities[i][d] = w*velocities[i][d] +
					c1*r1*(personalBest[i][d]-positions[i][d]) +
					c2*r2*(globalBest[d]-positions[i][d])
				positions[i][d] = clamp(positions[i][d]+velocities[i][d], problem.Bounds[d].Lo, problem.Bounds[d].Hi)
			}
			f, err := fitness(positions[i])
			if err != nil {
				return nil, err
			}
			if better(problem.Objective, f, personalBestFit[i]) {
				personalBestFit[i] = f
				personalBest[i] = cloneVec(positions[i])
			}
			if better(problem.Objective, f, globalBestFit) {
				globalBestFit = f
				globalBest = cloneVec(positions[i])
			}
		}
		curve = append(curve, globalBestFit)
		iterations++
	}

	return &domain.Result{
		BestSolution:         globalBest,
		BestFitness:          globalBestFit,
		ConvergenceCurve:     curve,
		IterationsCompleted:  iterations,
	}, nil
}

// --- Genetic Algorithm ---

type GeneticAlgorithmHandler struct{}

func (GeneticAlgorithmHandler) Type() string { return "genetic_algorithm" }

func (GeneticAlgorithmHandler) Run(ctx context.Context, problem domain.Problem, params domain.Params, fitness FitnessFunc) (*domain.Result, error) {
	popSize := paramInt(params, "population_size", 40)
	maxIter := paramInt(params, "max_iterations", 50)
	mutationRate := paramFloat(params, "mutation_rate", 0.1)
	if popSize < 4 {
		return nil, fmt.Errorf("population_size must be >= 4")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	n := len(problem.Bounds)

	pop := make([]scored, popSize)
	for i := range pop {
		x := randomPoint(rng, problem.Bounds)
		f, err := fitness(x)
		if err != nil {
			return nil, err
		}
		pop[i] = scored{x: x, fit: f}
	}

	best := pop[0]
	for _, ind := range pop {
		if better(problem.Objective, ind.fit, best.fit) {
			best = ind
		}
	}

	curve := make([]float64, 0, maxIter)
	iterations := 0
	for it := 0; it < maxIter; it++ {
		if ctx.Err() != nil {
			break
		}
		next := make([]scored, 0, popSize)
		next = append(next, scored{x: cloneVec(best.x), fit: best.fit}) // elitism
		for len(next) < popSize {
			p1 := tournamentSelect(rng, pop, problem.Objective)
			p2 := tournamentSelect(rng, pop, problem.Objective)
			child := make([]float64, n)
			for d := 0; d < n; d++ {
				if rng.Float64() < 0.5 {
					child[d] = p1.x[d]
				} else {
					child[d] = p2.x[d]
				}
				if rng.Float64() < mutationRate {
					span := problem.Bounds[d].Hi - problem.Bounds[d].Lo
					child[d] = clamp(child[d]+(rng.Float64()-0.5)*span*0.2, problem.Bounds[d].Lo, problem.Bounds[d].Hi)
				}
			}
			f, err := fitness(child)
			if err != nil {
				return nil, err
			}
			next = append(next, scored{x: child, fit: f})
			if better(problem.Objective, f, best.fit) {
				best = scored{x: cloneVec(child), fit: f}
			}
		}
		pop = next
		curve = append(curve, best.fit)
		iterations++
	}

	return &domain.Result{
		BestSolution:        best.x,
		BestFitness:         best.fit,
		ConvergenceCurve:    curve,
		IterationsCompleted: iterations,
	}, nil
}

func tournamentSelect(rng *rand.Rand, pop []scored, o domain.Objective) scored {
	a := pop[rng.Intn(len(pop))]
	b := pop[rng.Intn(len(pop))]
	if better(o, a.fit, b.fit) {
		return a
	}
	return b
}

// --- Simulated Annealing ---

type SimulatedAnnealingHandler struct{}

func (SimulatedAnnealingHandler) Type() string { return "simulated_annealing" }

func (SimulatedAnnealingHandler) Run(ctx context.Context, problem domain.Problem, params domain.Params, fitness FitnessFunc) (*domain.Result, error) {
	maxIter := paramInt(params, "max_iterations", 100)
	initialTemp := paramFloat(params, "initial_temperature", 10.0)
	coolingRate := paramFloat(params, "cooling_rate", 0.95)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	current := randomPoint(rng, problem.Bounds)
	currentFit, err := fitness(current)
	if err != nil {
		return nil, err
	}
	best := cloneVec(current)
	bestFit := currentFit
	temp := initialTemp

	curve := make([]float64, 0, maxIter)
	iterations := 0
	for it := 0; it < maxIter; it++ {
		if ctx.Err() != nil {
			break
		}
		candidate := make([]float64, len(current))
		for d, v := range current {
			span := problem.Bounds[d].Hi - problem.Bounds[d].Lo
			candidate[d] = clamp(v+(rng.Float64()-0.5)*span*0.1, problem.Bounds[d].Lo, problem.Bounds[d].Hi)
		}
		candFit, err := fitness(candidate)
		if err != nil {
			return nil, err
		}
		delta := candFit - currentFit
		if problem.Objective == domain.Maximize {
			delta = -delta
		}
		if delta < 0 || rng.Float64() < math.Exp(-delta/math.Max(temp, 1e-9)) {
			current = candidate
			currentFit = candFit
		}
		if better(problem.Objective, currentFit, bestFit) {
			bestFit = currentFit
			best = cloneVec(current)
		}
		temp *= coolingRate
		curve = append(curve, bestFit)
		iterations++
	}

	return &domain.Result{
		BestSolution:        best,
		BestFitness:         bestFit,
		ConvergenceCurve:    curve,
		IterationsCompleted: iterations,
	}, nil
}

// --- Continuous Ant Colony Optimization (ACOr-style) ---

type AntColonyHandler struct{}

func (AntColonyHandler) Type() string { return "ant_colony" }

func (AntColonyHandler) Run(ctx context.Context, problem domain.Problem, params domain.Params, fitness FitnessFunc) (*domain.Result, error) {
	archiveSize := paramInt(params, "archive_size", 20)
	maxIter := paramInt(params, "max_iterations", 50)
	samplesPerIter := paramInt(params, "ants", 10)
	if archiveSize < 2 {
		return nil, fmt.Errorf("archive_size must be >= 2")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	n := len(problem.Bounds)

	archive := make([]scored, archiveSize)
	for i := range archive {
		x := randomPoint(rng, problem.Bounds)
		f, err := fitness(x)
		if err != nil {
			return nil, err
		}
		archive[i] = scored{x: x, fit: f}
	}
	sortArchive(archive, problem.Objective)

	curve := make([]float64, 0, maxIter)
	iterations := 0
	for it := 0; it < maxIter; it++ {
		if ctx.Err() != nil {
			break
		}
		for s := 0; s < samplesPerIter; s++ {
			guide := archive[rng.Intn(len(archive)/2+1)] // bias toward better half
			x := make([]float64, n)
			for d := 0; d < n; d++ {
				sigma := (problem.Bounds[d].Hi - problem.Bounds[d].Lo) * 0.1
				x[d] = clamp(guide.x[d]+rng.NormFloat64()*sigma, problem.Bounds[d].Lo, problem.Bounds[d].Hi)
			}
			f, err := fitness(x)
			if err != nil {
				return nil, err
			}
			archive = append(archive, scored{x: x, fit: f})
		}
		sortArchive(archive, problem.Objective)
		archive = archive[:archiveSize]
		curve = append(curve, archive[0].fit)
		iterations++
	}

	return &domain.Result{
		BestSolution:        archive[0].x,
		BestFitness:         archive[0].fit,
		ConvergenceCurve:    curve,
		IterationsCompleted: iterations,
	}, nil
}

func sortArchive(archive []scored, o domain.Objective) {
	for i := 1; i < len(archive); i++ {
		j := i
		for j > 0 && better(o, archive[j].fit, archive[j-1].fit) {
			archive[j-1], archive[j] = archive[j], archive[j-1]
			j--
		}
	}
}

// --- Differential Evolution ---

type DifferentialEvolutionHandler struct{}

func (DifferentialEvolutionHandler) Type() string { return "differential_evolution" }

func (DifferentialEvolutionHandler) Run(ctx context.Context, problem domain.Problem, params domain.Params, fitness FitnessFunc) (*domain.Result, error) {
	popSize := paramInt(params, "population_size", 30)
	maxIter := paramInt(params, "max_iterations", 50)
	f := paramFloat(params, "differential_weight", 0.8)
	cr := paramFloat(params, "crossover_probability", 0.9)
	if popSize < 4 {
		return nil, fmt.Errorf("population_size must be >= 4")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	n := len(problem.Bounds)

	pop := make([][]float64, popSize)
	fits := make([]float64, popSize)
	for i := range pop {
		pop[i] = randomPoint(rng, problem.Bounds)
		v, err := fitness(pop[i])
		if err != nil {
			return nil, err
		}
		fits[i] = v
	}
	bestIdx := 0
	for i, v := range fits {
		if better(problem.Objective, v, fits[bestIdx]) {
			bestIdx = i
		}
	}

	curve := make([]float64, 0, maxIter)
	iterations := 0
	for it := 0; it < maxIter; it++ {
		if ctx.Err() != nil {
			break
		}
		for i := 0; i < popSize; i++ {
			a, b, c := distinctTriple(rng, popSize, i)
			trial := make([]float64, n)
			rIdx := rng.Intn(n)
			for d := 0; d < n; d++ {
				if d == rIdx || rng.Float64() < cr {
					trial[d] = clamp(pop[a][d]+f*(pop[b][d]-pop[c][d]), problem.Bounds[d].Lo, problem.Bounds[d].Hi)
				} else {
					trial[d] = pop[i][d]
				}
			}
			tf, err := fitness(trial)
			if err != nil {
				return nil, err
			}
			if better(problem.Objective, tf, fits[i]) {
				pop[i] = trial
				fits[i] = tf
				if better(problem.Objective, tf, fits[bestIdx]) {
					bestIdx = i
				}
			}
		}
		curve = append(curve, fits[bestIdx])
		iterations++
	}

	return &domain.Result{
		BestSolution:        pop[bestIdx],
		BestFitness:         fits[bestIdx],
		ConvergenceCurve:    curve,
		IterationsCompleted: iterations,
	}, nil
}

func distinctTriple(rng *rand.Rand, n, exclude int) (int, int, int) {
	pick := func(avoid map[int]bool) int {
		for {
			v := rng.Intn(n)
			if !avoid[v] {
				return v
			}
		}
	}
	a := pick(map[int]bool{exclude: true})
	b := pick(map[int]bool{exclude: true, a: true})
	c := pick(map[int]bool{exclude: true, a: true, b: true})
	return a, b, c
}

// RegisterBuiltins registers every reference algorithm handler into
// reg. Called once at process startup (app.New in internal/app).
func RegisterBuiltins(reg *Registry) error {
	handlers := []Handler{
		ParticleSwarmHandler{},
		GeneticAlgorithmHandler{},
		SimulatedAnnealingHandler{},
		AntColonyHandler{},
		DifferentialEvolutionHandler{},
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
