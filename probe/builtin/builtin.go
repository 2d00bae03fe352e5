// Package builtin ships the host probes the engine registers out of
// the box. Each probe carries a conservative default descriptor; the
// catalog config may override timeouts and retry policies per probe.
package builtin

import (
	"time"

	"github.com/hostdiag/probekit/probe"
)

// Override adjusts a builtin probe's descriptor at registration time.
// Zero fields keep the default.
type Override struct {
	Timeout time.Duration
	Retry   *probe.RetryPolicy
}

func Register(reg *probe.Registry, overrides map[string]Override) error {
	probes := []probe.Probe{
		NewCPULoad(),
		NewCPUBurn(),
		NewMemUsage(),
		NewMemChurn(),
		NewDiskIO(),
		NewDiskUsage(),
		NewHostInfo(),
	}

	for _, p := range probes {
		if bp, ok := p.(interface{ apply(Override) }); ok {
			if ov, found := overrides[p.Descriptor().ID]; found {
				bp.apply(ov)
			}
		}
		if err := reg.Register(p); err != nil {
			return err
		}
	}

	return nil
}

// base carries the descriptor plumbing shared by the builtin probes.
type base struct {
	desc probe.Descriptor
}

func (b *base) Descriptor() probe.Descriptor {
	return b.desc
}

func (b *base) apply(ov Override) {
	if ov.Timeout > 0 {
		b.desc.Timeout = ov.Timeout
	}
	if ov.Retry != nil {
		b.desc.Retry = *ov.Retry
	}
}
