package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

var _ engine.Service = (*tracingMiddleware)(nil)

type tracingMiddleware struct {
	tracer trace.Tracer
	svc    engine.Service
}

func Tracing(tracer trace.Tracer, svc engine.Service) engine.Service {
	return &tracingMiddleware{tracer, svc}
}

func (tm *tracingMiddleware) StartRun(ctx context.Context, probeIDs []string) (run.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "start_run", trace.WithAttributes(
		attribute.StringSlice("probe_ids", probeIDs),
	))
	defer span.End()

	return tm.svc.StartRun(ctx, probeIDs)
}

func (tm *tracingMiddleware) ExecuteRun(ctx context.Context, probeIDs []string) (run.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "execute_run", trace.WithAttributes(
		attribute.StringSlice("probe_ids", probeIDs),
	))
	defer span.End()

	return tm.svc.ExecuteRun(ctx, probeIDs)
}

func (tm *tracingMiddleware) GetRun(ctx context.Context, runID string) (run.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "get_run", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.GetRun(ctx, runID)
}

func (tm *tracingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list_runs", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRuns(ctx, offset, limit)
}

func (tm *tracingMiddleware) ListFailures(ctx context.Context, runID string) ([]metric.Failure, error) {
	ctx, span := tm.tracer.Start(ctx, "list_failures", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.ListFailures(ctx, runID)
}

func (tm *tracingMiddleware) ListSamples(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) (metric.SamplePage, error) {
	ctx, span := tm.tracer.Start(ctx, "list_samples", trace.WithAttributes(
		attribute.String("probe_id", probeID),
	))
	defer span.End()

	return tm.svc.ListSamples(ctx, probeID, start, end, offset, limit)
}

func (tm *tracingMiddleware) GetReport(ctx context.Context, probeID string, start, end time.Time) (aggregate.Report, error) {
	ctx, span := tm.tracer.Start(ctx, "get_report", trace.WithAttributes(
		attribute.String("probe_id", probeID),
	))
	defer span.End()

	return tm.svc.GetReport(ctx, probeID, start, end)
}

func (tm *tracingMiddleware) ExportReport(ctx context.Context, probeID string, start, end time.Time) (export.Report, error) {
	ctx, span := tm.tracer.Start(ctx, "export_report", trace.WithAttributes(
		attribute.String("probe_id", probeID),
	))
	defer span.End()

	return tm.svc.ExportReport(ctx, probeID, start, end)
}

func (tm *tracingMiddleware) Rotate(ctx context.Context, retention time.Duration) (archive.Report, error) {
	ctx, span := tm.tracer.Start(ctx, "rotate", trace.WithAttributes(
		attribute.String("retention", retention.String()),
	))
	defer span.End()

	return tm.svc.Rotate(ctx, retention)
}

func (tm *tracingMiddleware) ListProbes(ctx context.Context) ([]probe.Descriptor, error) {
	ctx, span := tm.tracer.Start(ctx, "list_probes")
	defer span.End()

	return tm.svc.ListProbes(ctx)
}
