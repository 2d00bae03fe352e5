package policy

import (
	"errors"
	"runtime"

	"github.com/hostdiag/probekit/probe"
)

var ErrInvalidBudget = errors.New("concurrency budget must not be negative")

// Budgets carries the per-class concurrency limits. A zero CPU budget
// means the host's detected parallelism; a zero IO or memory budget
// disables that class entirely.
type Budgets struct {
	CPU    int
	IO     int
	Memory int
}

// Policy decides which probes may run concurrently. Decisions are
// deterministic given the same running set: no randomness, no hidden
// state.
type Policy struct {
	cpu    int
	io     int
	memory int
}

func New(b Budgets) (Policy, error) {
	if b.CPU < 0 || b.IO < 0 || b.Memory < 0 {
		return Policy{}, ErrInvalidBudget
	}
	if b.CPU == 0 {
		b.CPU = runtime.NumCPU()
	}

	return Policy{cpu: b.CPU, io: b.IO, memory: b.Memory}, nil
}

// Admit reports whether candidate may start now given the currently
// running set. At most one exclusive probe runs at a time and nothing
// else runs beside it; the remaining classes are capped by their
// budgets.
func (p Policy) Admit(candidate probe.Descriptor, running []probe.Descriptor) bool {
	for _, d := range running {
		if d.Class == probe.ClassExclusive {
			return false
		}
	}

	switch candidate.Class {
	case probe.ClassExclusive:
		return len(running) == 0
	case probe.ClassCPUBound:
		return count(running, probe.ClassCPUBound) < p.cpu
	case probe.ClassIOBound:
		return count(running, probe.ClassIOBound) < p.io
	case probe.ClassMemoryBound:
		return count(running, probe.ClassMemoryBound) < p.memory
	default:
		return false
	}
}

// Admissible reports whether candidate could ever be admitted under
// this policy. Probes of a disabled class are recorded as
// resource-denied failures rather than queued forever.
func (p Policy) Admissible(candidate probe.Descriptor) bool {
	switch candidate.Class {
	case probe.ClassIOBound:
		return p.io > 0
	case probe.ClassMemoryBound:
		return p.memory > 0
	default:
		return candidate.Class.Valid()
	}
}

func count(running []probe.Descriptor, class probe.ResourceClass) int {
	n := 0
	for _, d := range running {
		if d.Class == class {
			n++
		}
	}

	return n
}
