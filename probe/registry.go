package probe

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateProbe = errors.New("probe already registered")
	ErrUnknownProbe   = errors.New("unknown probe")
)

// Registry holds the catalog of registered probes. Descriptors are
// immutable once registered; registration order is preserved so batch
// submission is deterministic.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	probes map[string]Probe
}

func NewRegistry() *Registry {
	return &Registry{
		probes: make(map[string]Probe),
	}
}

func (r *Registry) Register(p Probe) error {
	d := p.Descriptor()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("probe %q: %w", d.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.probes[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProbe, d.ID)
	}
	r.probes[d.ID] = p
	r.order = append(r.order, d.ID)

	return nil
}

func (r *Registry) Get(id string) (Probe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.probes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProbe, id)
	}

	return p, nil
}

// List returns the descriptors of all registered probes in
// registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		descs = append(descs, r.probes[id].Descriptor())
	}

	return descs
}
