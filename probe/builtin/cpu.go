package builtin

import (
	"context"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/probe"
)

const (
	cpuSampleInterval = time.Second
	burnDuration      = 500 * time.Millisecond
	burnChunk         = 1 << 16
)

// CPULoad samples host-wide CPU utilization over a one second window.
type CPULoad struct {
	base
}

func NewCPULoad() *CPULoad {
	return &CPULoad{base{desc: probe.Descriptor{
		ID:            "cpu_load",
		Class:         probe.ClassCPUBound,
		EstimatedCost: cpuSampleInterval,
		Timeout:       5 * time.Second,
		Retry:         probe.RetryPolicy{MaxAttempts: 2, Backoff: 100 * time.Millisecond},
	}}}
}

func (p *CPULoad) Run(ctx context.Context) (metric.Sample, error) {
	percents, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
	if err != nil {
		return metric.Sample{}, probe.MakeTransient(err)
	}

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     percents[0],
		Unit:      "%",
	}, nil
}

// CPUBurn measures single-core arithmetic throughput by running a
// tight floating point loop for a fixed duration.
type CPUBurn struct {
	base
}

func NewCPUBurn() *CPUBurn {
	return &CPUBurn{base{desc: probe.Descriptor{
		ID:            "cpu_burn",
		Class:         probe.ClassCPUBound,
		EstimatedCost: burnDuration,
		Timeout:       10 * time.Second,
		Retry:         probe.RetryPolicy{MaxAttempts: 1},
	}}}
}

func (p *CPUBurn) Run(ctx context.Context) (metric.Sample, error) {
	var (
		ops   uint64
		acc   = 1.0001
		start = time.Now()
	)
	for time.Since(start) < burnDuration {
		select {
		case <-ctx.Done():
			return metric.Sample{}, ctx.Err()
		default:
		}
		for range burnChunk {
			acc = math.Sqrt(acc*acc + 1)
		}
		ops += burnChunk
	}
	elapsed := time.Since(start).Seconds()

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     float64(ops) / elapsed,
		Unit:      "ops/s",
		Payload: map[string]any{
			"residual": acc,
		},
	}, nil
}
