package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

var _ engine.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     engine.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc engine.Service) engine.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) StartRun(ctx context.Context, probeIDs []string) (run.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start_run").Add(1)
		mm.latency.With("method", "start_run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartRun(ctx, probeIDs)
}

func (mm *metricsMiddleware) ExecuteRun(ctx context.Context, probeIDs []string) (run.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "execute_run").Add(1)
		mm.latency.With("method", "execute_run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ExecuteRun(ctx, probeIDs)
}

func (mm *metricsMiddleware) GetRun(ctx context.Context, runID string) (run.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get_run").Add(1)
		mm.latency.With("method", "get_run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRun(ctx, runID)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_runs").Add(1)
		mm.latency.With("method", "list_runs").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRuns(ctx, offset, limit)
}

func (mm *metricsMiddleware) ListFailures(ctx context.Context, runID string) ([]metric.Failure, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_failures").Add(1)
		mm.latency.With("method", "list_failures").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListFailures(ctx, runID)
}

func (mm *metricsMiddleware) ListSamples(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) (metric.SamplePage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_samples").Add(1)
		mm.latency.With("method", "list_samples").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListSamples(ctx, probeID, start, end, offset, limit)
}

func (mm *metricsMiddleware) GetReport(ctx context.Context, probeID string, start, end time.Time) (aggregate.Report, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get_report").Add(1)
		mm.latency.With("method", "get_report").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetReport(ctx, probeID, start, end)
}

func (mm *metricsMiddleware) ExportReport(ctx context.Context, probeID string, start, end time.Time) (export.Report, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "export_report").Add(1)
		mm.latency.With("method", "export_report").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ExportReport(ctx, probeID, start, end)
}

func (mm *metricsMiddleware) Rotate(ctx context.Context, retention time.Duration) (archive.Report, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "rotate").Add(1)
		mm.latency.With("method", "rotate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Rotate(ctx, retention)
}

func (mm *metricsMiddleware) ListProbes(ctx context.Context) ([]probe.Descriptor, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_probes").Add(1)
		mm.latency.With("method", "list_probes").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListProbes(ctx)
}
