package app

import (
	"time"

	"github.com/kthendral/optimizehub/internal/platform/envutil"
	"github.com/kthendral/optimizehub/internal/platform/logger"
	"github.com/kthendral/optimizehub/internal/sandbox"
	"github.com/kthendral/optimizehub/internal/worker"
)

// Config is the process-wide environment-variable-driven configuration
// (§6 "Configuration"), grounded on the teacher's app.LoadConfig shape
// but expanded to this spec's much larger env surface.
type Config struct {
	Worker  worker.Config
	Sandbox sandbox.Config

	RetentionWindow       time.Duration
	EvictionSweepInterval time.Duration

	SubmitRatePerSec float64
	SubmitRateBurst  int

	LogMode string
	Port    string

	RealtimeBus  string // "memory" (default) or "redis"
	RedisAddr    string
	RedisChannel string

	StreamHeartbeat time.Duration
}

// LoadConfig reads every §6-configuration env var, falling back to the
// spec's stated defaults.
func LoadConfig(log *logger.Logger) Config {
	log.Info("loading configuration")
	return Config{
		Worker:  worker.ConfigFromEnv(),
		Sandbox: sandbox.ConfigFromEnv(),

		RetentionWindow:       envutil.Duration("JOB_RETENTION_WINDOW", time.Hour),
		EvictionSweepInterval: envutil.Duration("JOB_EVICTION_SWEEP_INTERVAL", time.Minute),

		SubmitRatePerSec: envutil.Float("SUBMIT_RATE_PER_SEC", 50),
		SubmitRateBurst:  envutil.Int("SUBMIT_RATE_BURST", 100),

		LogMode: envutil.String("LOG_MODE", "development"),
		Port:    envutil.String("PORT", "8080"),

		RealtimeBus:  envutil.String("REALTIME_BUS", "memory"),
		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "optimizehub:job-events"),

		StreamHeartbeat: envutil.Duration("STREAM_HEARTBEAT_INTERVAL", 20*time.Second),
	}
}
