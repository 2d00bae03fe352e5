package engine

import (
	"context"
	"time"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

type Service interface {
	// StartRun creates a batch record and executes it asynchronously;
	// the returned run is in the Running state and can be polled via
	// GetRun.
	StartRun(ctx context.Context, probeIDs []string) (run.Run, error)

	// ExecuteRun creates a batch record and executes it to completion.
	ExecuteRun(ctx context.Context, probeIDs []string) (run.Run, error)

	GetRun(ctx context.Context, runID string) (run.Run, error)
	ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error)
	ListFailures(ctx context.Context, runID string) ([]metric.Failure, error)

	ListSamples(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) (metric.SamplePage, error)
	GetReport(ctx context.Context, probeID string, start, end time.Time) (aggregate.Report, error)
	ExportReport(ctx context.Context, probeID string, start, end time.Time) (export.Report, error)

	// Rotate archives samples older than retention into cold storage
	// and compacts the hot store. It is trigger-driven; the engine
	// never schedules it itself.
	Rotate(ctx context.Context, retention time.Duration) (archive.Report, error)

	ListProbes(ctx context.Context) ([]probe.Descriptor, error)
}
