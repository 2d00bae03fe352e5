package builtin

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/probe"
)

// HostInfo captures a host identity snapshot. It runs exclusively so
// the uptime and process counts are not skewed by concurrent
// benchmarks.
type HostInfo struct {
	base
}

func NewHostInfo() *HostInfo {
	return &HostInfo{base{desc: probe.Descriptor{
		ID:      "host_info",
		Class:   probe.ClassExclusive,
		Timeout: 10 * time.Second,
		Retry:   probe.RetryPolicy{MaxAttempts: 1},
	}}}
}

func (p *HostInfo) Run(ctx context.Context) (metric.Sample, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return metric.Sample{}, probe.MakeTransient(err)
	}

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     float64(info.Uptime),
		Unit:      "s",
		Payload: map[string]any{
			"hostname":       info.Hostname,
			"os":             info.OS,
			"platform":       info.Platform,
			"platform_ver":   info.PlatformVersion,
			"kernel_version": info.KernelVersion,
			"kernel_arch":    info.KernelArch,
			"procs":          info.Procs,
		},
	}, nil
}
