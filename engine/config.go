package engine

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors are fatal: the engine refuses to construct with
// out-of-range settings.
var (
	ErrInvalidBudget    = errors.New("invalid concurrency budget")
	ErrInvalidDeadline  = errors.New("batch deadline must be positive")
	ErrInvalidGrace     = errors.New("grace period must be positive")
	ErrInvalidRetention = errors.New("minimum retention must be positive")
	ErrInvalidThreshold = errors.New("anomaly threshold must be positive")
)

// Config is the immutable settings structure the engine is constructed
// with. There is no ambient state: everything the core needs arrives
// here.
type Config struct {
	// CPUBudget caps concurrently running cpu-bound probes. Zero
	// means the host's detected parallelism. A zero IOBudget or
	// MemoryBudget disables that class: its probes are rejected as
	// resource-denied instead of queued.
	CPUBudget    int `env:"CPU_BUDGET"    envDefault:"0"`
	IOBudget     int `env:"IO_BUDGET"     envDefault:"4"`
	MemoryBudget int `env:"MEMORY_BUDGET" envDefault:"2"`

	// BatchDeadline bounds the wall-clock time of one orchestrated
	// batch; outstanding probes are cancelled when it expires.
	BatchDeadline time.Duration `env:"BATCH_DEADLINE" envDefault:"5m"`

	// GracePeriod is how long batch finalization waits for cancelled
	// probes to acknowledge before their eventual results are
	// abandoned.
	GracePeriod time.Duration `env:"GRACE_PERIOD" envDefault:"5s"`

	// MinRetention is the smallest hot-store window Rotate will
	// accept; the retained range never shrinks below it.
	MinRetention time.Duration `env:"MIN_RETENTION" envDefault:"24h"`

	AnomalyThreshold float64 `env:"ANOMALY_THRESHOLD" envDefault:"3.0"`

	// Thresholds carries per-probe anomaly threshold overrides.
	Thresholds map[string]float64 `env:"-"`
}

func (c Config) Validate() error {
	if c.CPUBudget < 0 || c.IOBudget < 0 || c.MemoryBudget < 0 {
		return fmt.Errorf("%w: cpu=%d io=%d memory=%d", ErrInvalidBudget, c.CPUBudget, c.IOBudget, c.MemoryBudget)
	}
	if c.BatchDeadline <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDeadline, c.BatchDeadline)
	}
	if c.GracePeriod <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidGrace, c.GracePeriod)
	}
	if c.MinRetention <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRetention, c.MinRetention)
	}
	if c.AnomalyThreshold <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.AnomalyThreshold)
	}
	for id, t := range c.Thresholds {
		if t <= 0 {
			return fmt.Errorf("%w: probe %q: %v", ErrInvalidThreshold, id, t)
		}
	}

	return nil
}
