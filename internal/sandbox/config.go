package sandbox

import (
	"time"

	"github.com/kthendral/optimizehub/internal/platform/envutil"
)

// Config holds the isolation parameters for the Sandbox Executor (§4.3
// Isolation contract), all environment-variable driven per §6
// Configuration.
type Config struct {
	Image        string
	MemoryBytes  int64
	CPUShares    int64
	ScratchBytes int64
	// DefaultHardTimeout bounds a sandbox run when the caller's context
	// carries no deadline of its own (the synchronous
	// /api/optimize/custom path, which has no Worker Pool upstream to
	// set one).
	DefaultHardTimeout time.Duration
}

// ConfigFromEnv reads Config from the process environment, falling back
// to conservative defaults.
func ConfigFromEnv() Config {
	return Config{
		Image:              envutil.String("SANDBOX_IMAGE", "optimizehub-sandbox:latest"),
		MemoryBytes:        int64(envutil.Int("SANDBOX_MEMORY_BYTES", 256*1024*1024)),
		CPUShares:          int64(envutil.Int("SANDBOX_CPU_SHARES", 512)),
		ScratchBytes:       int64(envutil.Int("SANDBOX_SCRATCH_BYTES", 16*1024*1024)),
		DefaultHardTimeout: envutil.Duration("JOB_HARD_TIMEOUT", 10*time.Minute),
	}
}
