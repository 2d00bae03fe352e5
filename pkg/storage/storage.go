package storage

import (
	"context"
	"time"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/run"
)

// SampleRepository is the hot metrics store for probe samples. Writes
// are durable before Append returns; RangeScan reads a snapshot as of
// scan start and may be restarted at any time.
type SampleRepository interface {
	// Append persists one sample. It returns ErrDuplicateKey when the
	// same (probe, timestamp, run) triple was already written.
	Append(ctx context.Context, s metric.Sample) error

	// RangeScan streams the samples of one probe series within
	// [start, end] in timestamp order, invoking fn for each. The scan
	// never materializes the window; windows larger than memory are
	// processed incrementally. A non-nil error from fn aborts the scan.
	RangeScan(ctx context.Context, probeID string, start, end time.Time, fn func(metric.Sample) error) error

	// ListRange returns a page of the samples in [start, end] along
	// with the total count in the window.
	ListRange(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) ([]metric.Sample, uint64, error)

	// CompactBefore deletes all samples older than cutoff and reports
	// how many were removed.
	CompactBefore(ctx context.Context, cutoff time.Time) (uint64, error)

	// ProbeIDs lists the distinct probe series present in the store.
	ProbeIDs(ctx context.Context) ([]string, error)
}

// FailureRepository stores terminal probe failures for audit.
type FailureRepository interface {
	Append(ctx context.Context, f metric.Failure) error
	ListByRun(ctx context.Context, runID string) ([]metric.Failure, error)
	CompactBefore(ctx context.Context, cutoff time.Time) (uint64, error)
}

// RunRepository stores batch records.
type RunRepository interface {
	Create(ctx context.Context, r run.Run) (run.Run, error)
	Get(ctx context.Context, id string) (run.Run, error)
	Update(ctx context.Context, r run.Run) error
	List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error)
}

// Window identifies one archived slice of a probe series.
type Window struct {
	ProbeID string    `json:"probe_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Samples uint64    `json:"samples"`
}

// ArchiveRepository is the cold store for compressed, rotated sample
// windows. Put must be durable before it returns: the archiver only
// compacts the hot store after every cold write has been acknowledged.
type ArchiveRepository interface {
	Put(ctx context.Context, w Window, blob []byte) error
	Get(ctx context.Context, probeID string, start, end time.Time) ([]byte, error)
	Has(ctx context.Context, probeID string, start, end time.Time) (bool, error)
	List(ctx context.Context, probeID string) ([]Window, error)
}
