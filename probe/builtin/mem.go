package builtin

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/probe"
)

const (
	churnBuffers = 64
	churnBufSize = 1 << 20
)

// MemUsage samples host memory pressure.
type MemUsage struct {
	base
}

func NewMemUsage() *MemUsage {
	return &MemUsage{base{desc: probe.Descriptor{
		ID:      "mem_usage",
		Class:   probe.ClassMemoryBound,
		Timeout: 5 * time.Second,
		Retry:   probe.RetryPolicy{MaxAttempts: 2, Backoff: 100 * time.Millisecond},
	}}}
}

func (p *MemUsage) Run(ctx context.Context) (metric.Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return metric.Sample{}, probe.MakeTransient(err)
	}

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     vm.UsedPercent,
		Unit:      "%",
		Payload: map[string]any{
			"total":     vm.Total,
			"available": vm.Available,
			"used":      vm.Used,
		},
	}, nil
}

// MemChurn measures allocation throughput by cycling page-touched
// buffers through the allocator.
type MemChurn struct {
	base
}

func NewMemChurn() *MemChurn {
	return &MemChurn{base{desc: probe.Descriptor{
		ID:      "mem_churn",
		Class:   probe.ClassMemoryBound,
		Timeout: 10 * time.Second,
		Retry:   probe.RetryPolicy{MaxAttempts: 1},
	}}}
}

func (p *MemChurn) Run(ctx context.Context) (metric.Sample, error) {
	start := time.Now()
	for i := range churnBuffers {
		select {
		case <-ctx.Done():
			return metric.Sample{}, ctx.Err()
		default:
		}
		buf := make([]byte, churnBufSize)
		// Touch every page so the allocation is backed, not lazy.
		for j := 0; j < len(buf); j += 4096 {
			buf[j] = byte(i)
		}
	}
	elapsed := time.Since(start).Seconds()
	mb := float64(churnBuffers*churnBufSize) / (1 << 20)

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     mb / elapsed,
		Unit:      "MB/s",
	}, nil
}
