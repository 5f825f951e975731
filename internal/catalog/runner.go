package catalog

import (
	"context"
	"fmt"

	"github.com/kthendral/optimizehub/internal/domain"
)

// SandboxExecutor is the capability the Runner needs from the Sandbox
// Executor (C3) to run user-supplied fitness (§4.4 "delegate the
// entire invocation to §4.3"). Defined on the consumer side so this
// package never imports internal/sandbox.
type SandboxExecutor interface {
	Execute(ctx context.Context, req domain.SandboxRequest) (*domain.Result, *domain.JobError)
}

// Runner is the Algorithm Runner (C4).
type Runner struct {
	registry *Registry
	sandbox  SandboxExecutor
}

// NewRunner builds a Runner over registry, delegating user-supplied
// fitness jobs to sandbox.
func NewRunner(registry *Registry, sandbox SandboxExecutor) *Runner {
	return &Runner{registry: registry, sandbox: sandbox}
}

// Run dispatches job to the correct algorithm and produces a result
// record or a structured error (§4.4 Contract). It never returns a Go
// error; failures are always expressed as a *domain.JobError so every
// caller handles exactly one failure shape.
func (r *Runner) Run(ctx context.Context, job *domain.Job) (*domain.Result, *domain.JobError) {
	problem := job.Problem

	if problem.FitnessKind == domain.FitnessUserSupplied {
		if r.sandbox == nil {
			return nil, domain.NewError(domain.KindContainer, "sandbox executor not configured")
		}
		return r.sandbox.Execute(ctx, domain.SandboxRequest{
			Source:    problem.UserSource,
			Algorithm: job.Algorithm,
			Problem:   problem,
			Params:    job.Params,
		})
	}

	handler, ok := r.registry.Get(job.Algorithm)
	if !ok {
		return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("unknown algorithm %q", job.Algorithm))
	}

	fitness, err := r.resolveFitness(&problem)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, err.Error())
	}

	result, err := handler.Run(ctx, problem, job.Params, guardNumeric(fitness))
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewError(domain.KindTimeout, "deadline reached during algorithm execution")
		}
		return nil, domain.NewError(domain.KindRuntime, err.Error())
	}
	result.AlgorithmDisplayName = handler.Type()
	result.Params = job.Params
	return result, nil
}

// resolveFitness builds the FitnessFunc for benchmark and
// problem-type descriptors, mutating problem in place when a
// problem-type forces canonical bounds/objective (§4.4
// Normalization/Resolution). User-supplied descriptors never reach
// here (handled earlier in Run).
func (r *Runner) resolveFitness(problem *domain.Problem) (FitnessFunc, error) {
	switch problem.FitnessKind {
	case domain.FitnessBenchmark:
		fn, ok := BenchmarkFitness(problem.BenchmarkName)
		if !ok {
			return nil, fmt.Errorf("unknown benchmark fitness %q", problem.BenchmarkName)
		}
		return fn, nil
	case domain.FitnessProblemType:
		fn, bounds, objective, err := buildProblemTypeFitness(*problem)
		if err != nil {
			return nil, err
		}
		problem.Bounds = bounds
		problem.Objective = objective
		problem.N = len(bounds)
		return fn, nil
	default:
		return nil, fmt.Errorf("unrecognized fitness_kind %q", problem.FitnessKind)
	}
}
