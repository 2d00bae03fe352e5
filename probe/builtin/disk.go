package builtin

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/probe"
)

const (
	ioFileSize  = 32 << 20
	ioChunkSize = 1 << 20
)

// DiskIO measures sequential write-then-read throughput against a
// scratch file in the system temp directory.
type DiskIO struct {
	base
	dir string
}

func NewDiskIO() *DiskIO {
	return &DiskIO{base: base{desc: probe.Descriptor{
		ID:            "disk_io",
		Class:         probe.ClassIOBound,
		EstimatedCost: 2 * time.Second,
		Timeout:       30 * time.Second,
		Retry:         probe.RetryPolicy{MaxAttempts: 3, Backoff: 200 * time.Millisecond},
	}}}
}

func (p *DiskIO) Run(ctx context.Context) (metric.Sample, error) {
	f, err := os.CreateTemp(p.dir, "diskio-*.bin")
	if err != nil {
		return metric.Sample{}, probe.MakeTransient(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	chunk := make([]byte, ioChunkSize)
	if _, err := rand.Read(chunk); err != nil {
		return metric.Sample{}, err
	}

	start := time.Now()
	for written := 0; written < ioFileSize; written += ioChunkSize {
		select {
		case <-ctx.Done():
			return metric.Sample{}, ctx.Err()
		default:
		}
		if _, err := f.Write(chunk); err != nil {
			return metric.Sample{}, probe.MakeTransient(err)
		}
	}
	if err := f.Sync(); err != nil {
		return metric.Sample{}, probe.MakeTransient(err)
	}
	writeSecs := time.Since(start).Seconds()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return metric.Sample{}, err
	}
	start = time.Now()
	for {
		select {
		case <-ctx.Done():
			return metric.Sample{}, ctx.Err()
		default:
		}
		if _, err := f.Read(chunk); err != nil {
			if err == io.EOF {
				break
			}

			return metric.Sample{}, probe.MakeTransient(err)
		}
	}
	readSecs := time.Since(start).Seconds()

	mb := float64(ioFileSize) / (1 << 20)

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     mb / (writeSecs + readSecs),
		Unit:      "MB/s",
		Payload: map[string]any{
			"write_mbps": mb / writeSecs,
			"read_mbps":  mb / readSecs,
			"file_size":  ioFileSize,
		},
	}, nil
}

// DiskUsage samples filesystem utilization of the root mount.
type DiskUsage struct {
	base
	path string
}

func NewDiskUsage() *DiskUsage {
	return &DiskUsage{
		base: base{desc: probe.Descriptor{
			ID:      "disk_usage",
			Class:   probe.ClassIOBound,
			Timeout: 5 * time.Second,
			Retry:   probe.RetryPolicy{MaxAttempts: 2, Backoff: 100 * time.Millisecond},
		}},
		path: "/",
	}
}

func (p *DiskUsage) Run(ctx context.Context) (metric.Sample, error) {
	usage, err := disk.UsageWithContext(ctx, p.path)
	if err != nil {
		return metric.Sample{}, probe.MakeTransient(fmt.Errorf("stat %s: %w", p.path, err))
	}

	return metric.Sample{
		Timestamp: time.Now(),
		Value:     usage.UsedPercent,
		Unit:      "%",
		Payload: map[string]any{
			"path":  usage.Path,
			"total": usage.Total,
			"free":  usage.Free,
		},
	}, nil
}
