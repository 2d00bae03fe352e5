package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

var _ engine.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    engine.Service
}

func Logging(logger *slog.Logger, svc engine.Service) engine.Service {
	return &loggingMiddleware{logger, svc}
}

func (lm *loggingMiddleware) StartRun(ctx context.Context, probeIDs []string) (r run.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Any("probe_ids", probeIDs),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start run failed", args...)

			return
		}
		args = append(args, slog.String("run_id", r.ID), slog.String("name", r.Name))
		lm.logger.Info("Start run completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRun(ctx, probeIDs)
}

func (lm *loggingMiddleware) ExecuteRun(ctx context.Context, probeIDs []string) (r run.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Any("probe_ids", probeIDs),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Execute run failed", args...)

			return
		}
		args = append(args, slog.String("run_id", r.ID), slog.String("status", r.Status.String()))
		lm.logger.Info("Execute run completed successfully", args...)
	}(time.Now())

	return lm.svc.ExecuteRun(ctx, probeIDs)
}

func (lm *loggingMiddleware) GetRun(ctx context.Context, runID string) (r run.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("run_id", runID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get run failed", args...)

			return
		}
		lm.logger.Info("Get run completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRun(ctx, runID)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (page run.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
				slog.Uint64("total", page.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, offset, limit)
}

func (lm *loggingMiddleware) ListFailures(ctx context.Context, runID string) (failures []metric.Failure, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("run_id", runID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List failures failed", args...)

			return
		}
		lm.logger.Info("List failures completed successfully", args...)
	}(time.Now())

	return lm.svc.ListFailures(ctx, runID)
}

func (lm *loggingMiddleware) ListSamples(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) (page metric.SamplePage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("probe_id", probeID),
			slog.Group("window",
				slog.Time("start", start),
				slog.Time("end", end),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List samples failed", args...)

			return
		}
		lm.logger.Info("List samples completed successfully", args...)
	}(time.Now())

	return lm.svc.ListSamples(ctx, probeID, start, end, offset, limit)
}

func (lm *loggingMiddleware) GetReport(ctx context.Context, probeID string, start, end time.Time) (report aggregate.Report, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("probe_id", probeID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get report failed", args...)

			return
		}
		args = append(args, slog.Bool("anomaly", report.Anomaly))
		lm.logger.Info("Get report completed successfully", args...)
	}(time.Now())

	return lm.svc.GetReport(ctx, probeID, start, end)
}

func (lm *loggingMiddleware) ExportReport(ctx context.Context, probeID string, start, end time.Time) (report export.Report, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("probe_id", probeID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Export report failed", args...)

			return
		}
		args = append(args, slog.String("status", report.Status))
		lm.logger.Info("Export report completed successfully", args...)
	}(time.Now())

	return lm.svc.ExportReport(ctx, probeID, start, end)
}

func (lm *loggingMiddleware) Rotate(ctx context.Context, retention time.Duration) (report archive.Report, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("retention", retention.String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Rotate failed", args...)

			return
		}
		args = append(args,
			slog.Uint64("archived", report.Archived),
			slog.Uint64("removed", report.Removed),
		)
		lm.logger.Info("Rotate completed successfully", args...)
	}(time.Now())

	return lm.svc.Rotate(ctx, retention)
}

func (lm *loggingMiddleware) ListProbes(ctx context.Context) (descs []probe.Descriptor, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List probes failed", args...)

			return
		}
		lm.logger.Info("List probes completed successfully", args...)
	}(time.Now())

	return lm.svc.ListProbes(ctx)
}
