package probe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hostdiag/probekit/metric"
)

type ResourceClass string

const (
	ClassCPUBound    ResourceClass = "cpu-bound"
	ClassIOBound     ResourceClass = "io-bound"
	ClassMemoryBound ResourceClass = "memory-bound"
	ClassExclusive   ResourceClass = "exclusive"
)

func (c ResourceClass) Valid() bool {
	switch c {
	case ClassCPUBound, ClassIOBound, ClassMemoryBound, ClassExclusive:
		return true
	default:
		return false
	}
}

var (
	ErrEmptyID         = errors.New("empty probe identifier")
	ErrInvalidID       = errors.New("probe identifier must not contain ':'")
	ErrInvalidClass    = errors.New("invalid resource class")
	ErrInvalidTimeout  = errors.New("probe timeout must be positive")
	ErrInvalidAttempts = errors.New("retry attempts must be at least 1")
)

// RetryPolicy controls resubmission of transient failures. Backoff is
// the delay before the second attempt and doubles per attempt.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
}

// Descriptor is the immutable registration record of a probe. The
// identifier must be unique within a registry and is used as the key
// prefix of the probe's sample series.
type Descriptor struct {
	ID            string        `json:"id"`
	Class         ResourceClass `json:"class"`
	EstimatedCost time.Duration `json:"estimated_cost,omitempty"`
	Timeout       time.Duration `json:"timeout"`
	Retry         RetryPolicy   `json:"retry"`
}

func (d Descriptor) Validate() error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if strings.Contains(d.ID, ":") {
		return ErrInvalidID
	}
	if !d.Class.Valid() {
		return ErrInvalidClass
	}
	if d.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if d.Retry.MaxAttempts < 1 {
		return ErrInvalidAttempts
	}

	return nil
}

// Probe is a single diagnostic or benchmark unit of work. The engine
// treats implementations opaquely: it only reads the descriptor and
// invokes Run. Run must observe ctx cancellation at safe points and
// return promptly once it is signalled.
type Probe interface {
	Descriptor() Descriptor
	Run(ctx context.Context) (metric.Sample, error)
}
