package engine_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/storage"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

type memRuns struct {
	mu   sync.Mutex
	runs map[string]run.Run
	ids  []string
}

var _ storage.RunRepository = (*memRuns)(nil)

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[string]run.Run)}
}

func (m *memRuns) Create(_ context.Context, r run.Run) (run.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; ok {
		return run.Run{}, storage.ErrDuplicateKey
	}
	m.runs[r.ID] = r
	m.ids = append(m.ids, r.ID)

	return r, nil
}

func (m *memRuns) Get(_ context.Context, id string) (run.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return run.Run{}, storage.ErrRunNotFound
	}

	return r, nil
}

func (m *memRuns) Update(_ context.Context, r run.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; !ok {
		return storage.ErrRunNotFound
	}
	m.runs[r.ID] = r

	return nil
}

func (m *memRuns) List(_ context.Context, offset, limit uint64) ([]run.Run, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []run.Run
	for i, id := range m.ids {
		if uint64(i) >= offset && uint64(len(out)) < limit {
			out = append(out, m.runs[id])
		}
	}

	return out, uint64(len(m.ids)), nil
}

type memSamples struct {
	mu      sync.Mutex
	samples []metric.Sample
}

var _ storage.SampleRepository = (*memSamples)(nil)

func (m *memSamples) Append(_ context.Context, s metric.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)

	return nil
}

func (m *memSamples) RangeScan(_ context.Context, probeID string, start, end time.Time, fn func(metric.Sample) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.samples {
		if s.ProbeID != probeID || s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		if err := fn(s); err != nil {
			return err
		}
	}

	return nil
}

func (m *memSamples) ListRange(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) ([]metric.Sample, uint64, error) {
	var out []metric.Sample
	var total uint64
	err := m.RangeScan(ctx, probeID, start, end, func(s metric.Sample) error {
		if total >= offset && uint64(len(out)) < limit {
			out = append(out, s)
		}
		total++

		return nil
	})

	return out, total, err
}

func (m *memSamples) CompactBefore(_ context.Context, _ time.Time) (uint64, error) {
	return 0, nil
}

func (m *memSamples) ProbeIDs(_ context.Context) ([]string, error) {
	return nil, nil
}

func (m *memSamples) all() []metric.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]metric.Sample(nil), m.samples...)
}

// failingSamples rejects every write, as a store on a failed medium
// would.
type failingSamples struct {
	memSamples
}

func (f *failingSamples) Append(_ context.Context, _ metric.Sample) error {
	return fmt.Errorf("%w: disk gone", storage.ErrIOFailure)
}

type memFailures struct {
	mu       sync.Mutex
	failures []metric.Failure
}

var _ storage.FailureRepository = (*memFailures)(nil)

func (m *memFailures) Append(_ context.Context, f metric.Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, f)

	return nil
}

func (m *memFailures) ListByRun(_ context.Context, runID string) ([]metric.Failure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []metric.Failure
	for _, f := range m.failures {
		if f.RunID == runID {
			out = append(out, f)
		}
	}

	return out, nil
}

func (m *memFailures) CompactBefore(_ context.Context, _ time.Time) (uint64, error) {
	return 0, nil
}

func (m *memFailures) all() []metric.Failure {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]metric.Failure(nil), m.failures...)
}

type memArchive struct{}

var _ storage.ArchiveRepository = (*memArchive)(nil)

func (memArchive) Put(_ context.Context, _ storage.Window, _ []byte) error {
	return nil
}

func (memArchive) Get(_ context.Context, _ string, _, _ time.Time) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (memArchive) Has(_ context.Context, _ string, _, _ time.Time) (bool, error) {
	return false, nil
}

func (memArchive) List(_ context.Context, _ string) ([]storage.Window, error) {
	return nil, nil
}

// fakeProbe drives the orchestration paths: behavior decides the result
// of each attempt and attempts are counted across retries.
type fakeProbe struct {
	desc     probe.Descriptor
	behavior func(ctx context.Context, attempt int) (metric.Sample, error)

	mu       sync.Mutex
	attempts int
}

func (p *fakeProbe) Descriptor() probe.Descriptor {
	return p.desc
}

func (p *fakeProbe) Run(ctx context.Context) (metric.Sample, error) {
	p.mu.Lock()
	p.attempts++
	attempt := p.attempts
	p.mu.Unlock()

	return p.behavior(ctx, attempt)
}

func descriptor(id string, class probe.ResourceClass, timeout time.Duration, attempts int) probe.Descriptor {
	return probe.Descriptor{
		ID:      id,
		Class:   class,
		Timeout: timeout,
		Retry:   probe.RetryPolicy{MaxAttempts: attempts, Backoff: time.Millisecond},
	}
}

func quickProbe(id string, value float64) *fakeProbe {
	return &fakeProbe{
		desc: descriptor(id, probe.ClassCPUBound, time.Second, 1),
		behavior: func(_ context.Context, _ int) (metric.Sample, error) {
			return metric.Sample{Value: value, Unit: "ms"}, nil
		},
	}
}

func blockingProbe(id string, timeout time.Duration, attempts int) *fakeProbe {
	return &fakeProbe{
		desc: descriptor(id, probe.ClassCPUBound, timeout, attempts),
		behavior: func(ctx context.Context, _ int) (metric.Sample, error) {
			<-ctx.Done()

			return metric.Sample{}, ctx.Err()
		},
	}
}

func testConfig() engine.Config {
	return engine.Config{
		CPUBudget:        4,
		IOBudget:         4,
		MemoryBudget:     2,
		BatchDeadline:    5 * time.Second,
		GracePeriod:      100 * time.Millisecond,
		MinRetention:     time.Hour,
		AnomalyThreshold: 3.0,
	}
}

type fixture struct {
	svc      engine.Service
	runs     *memRuns
	samples  *memSamples
	failures *memFailures
}

func newFixture(t *testing.T, cfg engine.Config, probes ...probe.Probe) fixture {
	t.Helper()
	reg := probe.NewRegistry()
	for _, p := range probes {
		require.Nil(t, reg.Register(p))
	}

	runs := newMemRuns()
	samples := &memSamples{}
	failures := &memFailures{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := engine.NewService(cfg, reg, runs, samples, failures, memArchive{}, archive.CodecZstd, logger)
	require.Nil(t, err)

	return fixture{svc: svc, runs: runs, samples: samples, failures: failures}
}

func TestExecuteRunCompleted(t *testing.T) {
	f := newFixture(t, testConfig(), quickProbe("cpu_load", 42), quickProbe("mem_usage", 63))

	r, err := f.svc.ExecuteRun(context.Background(), []string{"cpu_load", "mem_usage"})
	require.Nil(t, err)

	assert.Equal(t, run.Completed, r.Status)
	assert.Empty(t, r.Error)
	assert.NotEmpty(t, r.ID)
	assert.NotEmpty(t, r.Name)
	assert.False(t, r.FinishedAt.IsZero())

	samples := f.samples.all()
	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.Equal(t, r.ID, s.RunID)
		assert.NotEmpty(t, s.ProbeID)
		assert.False(t, s.Timestamp.IsZero())
	}
	assert.Empty(t, f.failures.all())
}

func TestExecuteRunTimeoutIsTerminal(t *testing.T) {
	// MaxAttempts of 3 must not matter: a timed-out probe is never
	// retried.
	p := blockingProbe("slow", 50*time.Millisecond, 3)
	f := newFixture(t, testConfig(), p)

	r, err := f.svc.ExecuteRun(context.Background(), []string{"slow"})
	require.Nil(t, err)

	assert.Equal(t, run.Partial, r.Status)
	assert.Equal(t, "1 of 1 probes failed", r.Error)
	assert.Equal(t, 1, p.attempts)

	failures := f.failures.all()
	require.Len(t, failures, 1)
	assert.Equal(t, metric.CauseTimeout, failures[0].Cause)
	assert.Equal(t, "exceeded 50ms timeout", failures[0].Detail)
	assert.Empty(t, f.samples.all())
}

func TestExecuteRunTransientRetry(t *testing.T) {
	p := &fakeProbe{
		desc: descriptor("flaky", probe.ClassIOBound, time.Second, 3),
		behavior: func(_ context.Context, attempt int) (metric.Sample, error) {
			if attempt == 1 {
				return metric.Sample{}, probe.MakeTransient(errors.New("device busy"))
			}

			return metric.Sample{Value: 7, Unit: "MB/s"}, nil
		},
	}
	f := newFixture(t, testConfig(), p)

	r, err := f.svc.ExecuteRun(context.Background(), []string{"flaky"})
	require.Nil(t, err)

	assert.Equal(t, run.Completed, r.Status)
	assert.Equal(t, 2, p.attempts)
	assert.Len(t, f.samples.all(), 1)

	// The retried transient failure never reaches the failure log.
	assert.Empty(t, f.failures.all())
}

func TestExecuteRunTransientExhausted(t *testing.T) {
	p := &fakeProbe{
		desc: descriptor("flaky", probe.ClassIOBound, time.Second, 2),
		behavior: func(_ context.Context, _ int) (metric.Sample, error) {
			return metric.Sample{}, probe.MakeTransient(errors.New("device busy"))
		},
	}
	f := newFixture(t, testConfig(), p)

	r, err := f.svc.ExecuteRun(context.Background(), []string{"flaky"})
	require.Nil(t, err)

	// Every probe resolved before the deadline, so the batch is Partial
	// even though nothing succeeded.
	assert.Equal(t, run.Partial, r.Status)
	assert.Equal(t, "1 of 1 probes failed", r.Error)
	assert.Equal(t, 2, p.attempts)

	failures := f.failures.all()
	require.Len(t, failures, 1)
	assert.Equal(t, metric.CauseProbeError, failures[0].Cause)
}

func TestExecuteRunPartial(t *testing.T) {
	broken := &fakeProbe{
		desc: descriptor("broken", probe.ClassCPUBound, time.Second, 1),
		behavior: func(_ context.Context, _ int) (metric.Sample, error) {
			return metric.Sample{}, errors.New("sensor unavailable")
		},
	}
	f := newFixture(t, testConfig(), quickProbe("cpu_load", 42), broken)

	r, err := f.svc.ExecuteRun(context.Background(), []string{"cpu_load", "broken"})
	require.Nil(t, err)

	assert.Equal(t, run.Partial, r.Status)
	assert.Equal(t, "1 of 2 probes failed", r.Error)
	assert.Len(t, f.samples.all(), 1)

	failures := f.failures.all()
	require.Len(t, failures, 1)
	assert.Equal(t, metric.CauseProbeError, failures[0].Cause)
	assert.Equal(t, "sensor unavailable", failures[0].Detail)
}

func TestExecuteRunExclusiveSerialization(t *testing.T) {
	type interval struct {
		id         string
		start, end time.Time
	}

	var mu sync.Mutex
	var intervals []interval

	tracked := func(id string, class probe.ResourceClass) *fakeProbe {
		return &fakeProbe{
			desc: descriptor(id, class, time.Second, 1),
			behavior: func(_ context.Context, _ int) (metric.Sample, error) {
				start := time.Now()
				time.Sleep(30 * time.Millisecond)
				mu.Lock()
				intervals = append(intervals, interval{id: id, start: start, end: time.Now()})
				mu.Unlock()

				return metric.Sample{Value: 1}, nil
			},
		}
	}

	f := newFixture(t, testConfig(),
		tracked("cpu_a", probe.ClassCPUBound),
		tracked("host_info", probe.ClassExclusive),
		tracked("cpu_b", probe.ClassCPUBound),
	)

	r, err := f.svc.ExecuteRun(context.Background(), []string{"cpu_a", "host_info", "cpu_b"})
	require.Nil(t, err)
	assert.Equal(t, run.Completed, r.Status)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, intervals, 3)
	var exclusive interval
	for _, iv := range intervals {
		if iv.id == "host_info" {
			exclusive = iv
		}
	}
	for _, iv := range intervals {
		if iv.id == "host_info" {
			continue
		}
		overlaps := exclusive.start.Before(iv.end) && iv.start.Before(exclusive.end)
		assert.False(t, overlaps, "exclusive probe overlapped %s", iv.id)
	}
}

func TestExecuteRunBatchDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.BatchDeadline = 50 * time.Millisecond
	cfg.GracePeriod = 50 * time.Millisecond

	// The probe's own timeout is far beyond the batch deadline, so the
	// deadline is what cancels it.
	f := newFixture(t, cfg, blockingProbe("slow", time.Minute, 1))

	r, err := f.svc.ExecuteRun(context.Background(), []string{"slow"})
	require.Nil(t, err)

	assert.Equal(t, run.Partial, r.Status)
	assert.Equal(t, "batch deadline exceeded", r.Error)

	// The cancelled probe's result arrived after resolution and was
	// discarded.
	assert.Empty(t, f.samples.all())
}

func TestExecuteRunStoreFailureStopsScheduling(t *testing.T) {
	first := quickProbe("first", 1)
	second := quickProbe("second", 2)
	reg := probe.NewRegistry()
	require.Nil(t, reg.Register(first))
	require.Nil(t, reg.Register(second))

	// Budget of one serializes the probes, so the write failure lands
	// before the second probe is admitted.
	cfg := testConfig()
	cfg.CPUBudget = 1

	runs := newMemRuns()
	failures := &memFailures{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := engine.NewService(cfg, reg, runs, &failingSamples{}, failures, memArchive{}, archive.CodecZstd, logger)
	require.Nil(t, err)

	r, err := svc.ExecuteRun(context.Background(), []string{"first", "second"})
	require.Nil(t, err)

	assert.Equal(t, run.Failed, r.Status)
	assert.Contains(t, r.Error, storage.ErrIOFailure.Error())

	// Once durability is lost nothing further is scheduled.
	assert.Equal(t, 1, first.attempts)
	assert.Equal(t, 0, second.attempts)
}

func TestExecuteRunResourceDenied(t *testing.T) {
	ioProbe := &fakeProbe{
		desc: descriptor("disk_io", probe.ClassIOBound, time.Second, 1),
		behavior: func(_ context.Context, _ int) (metric.Sample, error) {
			return metric.Sample{Value: 1}, nil
		},
	}

	cfg := testConfig()
	cfg.IOBudget = 0
	f := newFixture(t, cfg, ioProbe, quickProbe("cpu_load", 42))

	r, err := f.svc.ExecuteRun(context.Background(), []string{"disk_io", "cpu_load"})
	require.Nil(t, err)

	assert.Equal(t, run.Partial, r.Status)
	assert.Equal(t, "1 of 2 probes failed", r.Error)
	assert.Equal(t, 0, ioProbe.attempts)
	assert.Len(t, f.samples.all(), 1)

	failures := f.failures.all()
	require.Len(t, failures, 1)
	assert.Equal(t, metric.CauseResourceDenied, failures[0].Cause)
	assert.Equal(t, "disk_io", failures[0].ProbeID)
}

func TestStartRunAsync(t *testing.T) {
	f := newFixture(t, testConfig(), quickProbe("cpu_load", 42))

	r, err := f.svc.StartRun(context.Background(), []string{"cpu_load"})
	require.Nil(t, err)
	assert.Equal(t, run.Running, r.Status)

	require.Eventually(t, func() bool {
		got, err := f.runs.Get(context.Background(), r.ID)

		return err == nil && got.Status == run.Completed
	}, time.Second, 10*time.Millisecond)
}

func TestStartRunUnknownProbe(t *testing.T) {
	f := newFixture(t, testConfig(), quickProbe("cpu_load", 42))

	_, err := f.svc.StartRun(context.Background(), []string{"cpu_load", "unknown"})
	assert.ErrorIs(t, err, probe.ErrUnknownProbe)

	// All-or-nothing resolution: nothing was recorded.
	_, total, err := f.runs.List(context.Background(), 0, 10)
	require.Nil(t, err)
	assert.Zero(t, total)
}

func TestExecuteRunDefaultsToAllProbes(t *testing.T) {
	f := newFixture(t, testConfig(), quickProbe("cpu_load", 42), quickProbe("mem_usage", 63))

	r, err := f.svc.ExecuteRun(context.Background(), nil)
	require.Nil(t, err)

	assert.Equal(t, run.Completed, r.Status)
	assert.ElementsMatch(t, []string{"cpu_load", "mem_usage"}, r.ProbeIDs)
	assert.Len(t, f.samples.all(), 2)
}

func TestListFailuresUnknownRun(t *testing.T) {
	f := newFixture(t, testConfig(), quickProbe("cpu_load", 42))

	_, err := f.svc.ListFailures(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		desc   string
		modify func(*engine.Config)
		err    error
	}{
		{
			desc:   "valid config",
			modify: func(*engine.Config) {},
			err:    nil,
		},
		{
			desc:   "zero cpu budget is host parallelism",
			modify: func(c *engine.Config) { c.CPUBudget = 0 },
			err:    nil,
		},
		{
			desc:   "negative cpu budget",
			modify: func(c *engine.Config) { c.CPUBudget = -1 },
			err:    engine.ErrInvalidBudget,
		},
		{
			desc:   "zero io budget disables the class",
			modify: func(c *engine.Config) { c.IOBudget = 0 },
			err:    nil,
		},
		{
			desc:   "negative io budget",
			modify: func(c *engine.Config) { c.IOBudget = -1 },
			err:    engine.ErrInvalidBudget,
		},
		{
			desc:   "zero batch deadline",
			modify: func(c *engine.Config) { c.BatchDeadline = 0 },
			err:    engine.ErrInvalidDeadline,
		},
		{
			desc:   "negative grace period",
			modify: func(c *engine.Config) { c.GracePeriod = -time.Second },
			err:    engine.ErrInvalidGrace,
		},
		{
			desc:   "zero retention",
			modify: func(c *engine.Config) { c.MinRetention = 0 },
			err:    engine.ErrInvalidRetention,
		},
		{
			desc:   "negative anomaly threshold",
			modify: func(c *engine.Config) { c.AnomalyThreshold = -1 },
			err:    engine.ErrInvalidThreshold,
		},
		{
			desc:   "invalid per-probe threshold",
			modify: func(c *engine.Config) { c.Thresholds = map[string]float64{"cpu_load": 0} },
			err:    engine.ErrInvalidThreshold,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := testConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			assert.Nil(t, err)
		})
	}
}
