package worker

import (
	"runtime"
	"time"

	"github.com/kthendral/optimizehub/internal/platform/envutil"
)

// Config holds the Worker Pool's concurrency, timeout, and retry
// parameters (§4.5), all environment-variable driven per §6
// Configuration.
type Config struct {
	Concurrency    int
	QueueCapacity  int
	SoftTimeout    time.Duration
	HardTimeout    time.Duration
	RetryMax       int
	RetryBaseDelay time.Duration
}

// ConfigFromEnv reads Config from the process environment. Concurrency
// defaults to the host's available parallelism, matching §4.5's
// "default equal to the host's available parallelism
// (runtime.GOMAXPROCS(0))".
func ConfigFromEnv() Config {
	return Config{
		Concurrency:    envutil.Int("WORKER_CONCURRENCY", runtime.GOMAXPROCS(0)),
		QueueCapacity:  envutil.Int("QUEUE_CAPACITY", 256),
		SoftTimeout:    envutil.Duration("JOB_SOFT_TIMEOUT", 9*time.Minute+30*time.Second),
		HardTimeout:    envutil.Duration("JOB_HARD_TIMEOUT", 10*time.Minute),
		RetryMax:       envutil.Int("JOB_RETRY_MAX", 2),
		RetryBaseDelay: envutil.Duration("JOB_RETRY_BASE_DELAY", 500*time.Millisecond),
	}
}
