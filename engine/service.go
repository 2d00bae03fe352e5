package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/google/uuid"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/pkg/policy"
	"github.com/hostdiag/probekit/pkg/storage"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

var namegen = namegenerator.NewGenerator()

type service struct {
	cfg      Config
	registry *probe.Registry
	policy   policy.Policy
	runs     storage.RunRepository
	samples  storage.SampleRepository
	failures storage.FailureRepository
	agg      *aggregate.Aggregator
	exporter *export.Exporter
	archiver *archive.Archiver
	logger   *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(cfg Config, registry *probe.Registry, runs storage.RunRepository, samples storage.SampleRepository, failures storage.FailureRepository, cold storage.ArchiveRepository, codec archive.Codec, logger *slog.Logger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pol, err := policy.New(policy.Budgets{
		CPU:    cfg.CPUBudget,
		IO:     cfg.IOBudget,
		Memory: cfg.MemoryBudget,
	})
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(samples, cfg.AnomalyThreshold, cfg.Thresholds)

	return &service{
		cfg:      cfg,
		registry: registry,
		policy:   pol,
		runs:     runs,
		samples:  samples,
		failures: failures,
		agg:      agg,
		exporter: export.New(agg),
		archiver: archive.New(samples, cold, codec, cfg.MinRetention),
		logger:   logger,
	}, nil
}

func (svc *service) StartRun(ctx context.Context, probeIDs []string) (run.Run, error) {
	r, probes, err := svc.createRun(ctx, probeIDs)
	if err != nil {
		return run.Run{}, err
	}

	// The batch outlives the request that submitted it.
	go func() {
		bctx, cancel := context.WithTimeout(context.Background(), svc.cfg.BatchDeadline)
		defer cancel()
		svc.execute(bctx, r, probes)
	}()

	return r, nil
}

func (svc *service) ExecuteRun(ctx context.Context, probeIDs []string) (run.Run, error) {
	r, probes, err := svc.createRun(ctx, probeIDs)
	if err != nil {
		return run.Run{}, err
	}

	bctx, cancel := context.WithTimeout(ctx, svc.cfg.BatchDeadline)
	defer cancel()
	svc.execute(bctx, r, probes)

	return svc.runs.Get(ctx, r.ID)
}

// createRun resolves the probe set and persists the Running record.
// Resolution is all-or-nothing: one unknown probe rejects the batch.
func (svc *service) createRun(ctx context.Context, probeIDs []string) (run.Run, []probe.Probe, error) {
	if len(probeIDs) == 0 {
		for _, d := range svc.registry.List() {
			probeIDs = append(probeIDs, d.ID)
		}
	}

	probes := make([]probe.Probe, 0, len(probeIDs))
	for _, id := range probeIDs {
		p, err := svc.registry.Get(id)
		if err != nil {
			return run.Run{}, nil, err
		}
		probes = append(probes, p)
	}

	r := run.Run{
		ID:        uuid.NewString(),
		Name:      namegen.Generate(),
		Status:    run.Running,
		ProbeIDs:  probeIDs,
		StartedAt: time.Now(),
	}
	r, err := svc.runs.Create(ctx, r)
	if err != nil {
		return run.Run{}, nil, err
	}

	return r, probes, nil
}

// execute drives the batch to a terminal state and persists it. Storage
// errors during finalization are logged; the record keeps its last
// consistent state.
func (svc *service) execute(bctx context.Context, r run.Run, probes []probe.Probe) {
	outcome := svc.orchestrate(bctx, r.ID, probes)

	r.Status = outcome.status
	r.FinishedAt = time.Now()
	r.Error = outcome.detail
	if err := svc.runs.Update(context.Background(), r); err != nil {
		svc.logger.Error("failed to finalize run",
			slog.String("run_id", r.ID),
			slog.Any("error", err),
		)

		return
	}
	svc.logger.Info("run finished",
		slog.String("run_id", r.ID),
		slog.String("name", r.Name),
		slog.String("status", r.Status.String()),
		slog.Duration("duration", r.FinishedAt.Sub(r.StartedAt)),
	)
}

func (svc *service) GetRun(ctx context.Context, runID string) (run.Run, error) {
	return svc.runs.Get(ctx, runID)
}

func (svc *service) ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error) {
	runs, total, err := svc.runs.List(ctx, offset, limit)
	if err != nil {
		return run.Page{}, err
	}

	return run.Page{Offset: offset, Limit: limit, Total: total, Runs: runs}, nil
}

func (svc *service) ListFailures(ctx context.Context, runID string) ([]metric.Failure, error) {
	if _, err := svc.runs.Get(ctx, runID); err != nil {
		return nil, err
	}

	return svc.failures.ListByRun(ctx, runID)
}

func (svc *service) ListSamples(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) (metric.SamplePage, error) {
	samples, total, err := svc.samples.ListRange(ctx, probeID, start, end, offset, limit)
	if err != nil {
		return metric.SamplePage{}, err
	}

	return metric.SamplePage{Offset: offset, Limit: limit, Total: total, Samples: samples}, nil
}

func (svc *service) GetReport(ctx context.Context, probeID string, start, end time.Time) (aggregate.Report, error) {
	return svc.agg.Compute(ctx, probeID, start, end)
}

func (svc *service) ExportReport(ctx context.Context, probeID string, start, end time.Time) (export.Report, error) {
	return svc.exporter.Export(ctx, probeID, start, end)
}

func (svc *service) Rotate(ctx context.Context, retention time.Duration) (archive.Report, error) {
	report, err := svc.archiver.Rotate(ctx, retention)
	if err != nil {
		return archive.Report{}, fmt.Errorf("rotation failed: %w", err)
	}

	return report, nil
}

func (svc *service) ListProbes(_ context.Context) ([]probe.Descriptor, error) {
	return svc.registry.List(), nil
}
