package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kthendral/optimizehub/internal/domain"
)

const (
	fitnessFileName = "fitness.py"
	jobFileName     = "job.json"

	// scratchMountPath is where the scratch directory is bound inside
	// the isolated child (§4.3 "a writable scratch directory").
	scratchMountPath = "/scratch"
)

// childSpec is the serialized job spec written into the scratch
// directory for the isolated child to read (§6 "Standard input carries
// a single JSON document {source path, config}"). The container
// boundary makes literal stdin piping to the main container process
// awkward with testcontainers-go's lifecycle API, so the same document
// travels via the scratch-mounted job.json instead of a stdin pipe;
// the output side still matches literally — the child's single JSON
// document on its standard output, captured through container logs.
type childSpec struct {
	FitnessPath string         `json:"fitness_path"`
	Algorithm   string         `json:"algorithm"`
	Problem     domain.Problem `json:"problem"`
	Params      domain.Params  `json:"params"`
}

// childError mirrors the error shape the isolated child may emit on its
// standard output instead of a result (§4.3 Output).
type childError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// childOutput is the single JSON document the isolated child writes to
// its standard output: either a populated result or a populated error,
// never both.
type childOutput struct {
	BestSolution         []float64   `json:"best_solution,omitempty"`
	BestFitness          float64     `json:"best_fitness,omitempty"`
	ConvergenceCurve     []float64   `json:"convergence_curve,omitempty"`
	IterationsCompleted  int         `json:"iterations_completed,omitempty"`
	ExecutionTimeSeconds float64     `json:"execution_time,omitempty"`
	Error                *childError `json:"error,omitempty"`
}

// writeScratch materializes the fitness source and job spec into dir.
// The job spec's fitness_path is the source's in-container path under
// scratchMountPath.
func writeScratch(dir string, req domain.SandboxRequest) error {
	fitnessPath := filepath.Join(dir, fitnessFileName)
	if err := os.WriteFile(fitnessPath, []byte(req.Source), 0o444); err != nil {
		return fmt.Errorf("sandbox: write fitness source: %w", err)
	}

	spec := childSpec{
		FitnessPath: scratchMountPath + "/" + fitnessFileName,
		Algorithm:   req.Algorithm,
		Problem:     req.Problem,
		Params:      req.Params,
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("sandbox: marshal job spec: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, jobFileName), encoded, 0o444); err != nil {
		return fmt.Errorf("sandbox: write job spec: %w", err)
	}
	return nil
}

// decodeChildOutput parses the raw bytes captured from the child's
// standard output into either a *domain.Result or a *domain.JobError,
// never both. A malformed or empty document is reported as KindParse
// (§4.3 Output "parse").
func decodeChildOutput(raw []byte) (*domain.Result, *domain.JobError) {
	var out childOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.NewError(domain.KindParse, fmt.Sprintf("sandbox: could not decode child output: %v", err))
	}
	if out.Error != nil {
		kind := domain.ErrorKind(out.Error.Kind)
		if kind == "" {
			kind = domain.KindRuntime
		}
		return nil, domain.NewError(kind, out.Error.Message)
	}
	return &domain.Result{
		BestSolution:         out.BestSolution,
		BestFitness:          out.BestFitness,
		ConvergenceCurve:     out.ConvergenceCurve,
		IterationsCompleted:  out.IterationsCompleted,
		ExecutionTimeSeconds: out.ExecutionTimeSeconds,
	}, nil
}
