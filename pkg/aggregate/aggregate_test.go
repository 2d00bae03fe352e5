package aggregate_test

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/storage"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memSamples is an in-memory SampleRepository covering the read paths
// the aggregator uses.
type memSamples struct {
	samples map[string][]metric.Sample
}

var _ storage.SampleRepository = (*memSamples)(nil)

func newMemSamples() *memSamples {
	return &memSamples{samples: make(map[string][]metric.Sample)}
}

func (m *memSamples) Append(_ context.Context, s metric.Sample) error {
	m.samples[s.ProbeID] = append(m.samples[s.ProbeID], s)
	sort.Slice(m.samples[s.ProbeID], func(i, j int) bool {
		return m.samples[s.ProbeID][i].Timestamp.Before(m.samples[s.ProbeID][j].Timestamp)
	})

	return nil
}

func (m *memSamples) RangeScan(ctx context.Context, probeID string, start, end time.Time, fn func(metric.Sample) error) error {
	for _, s := range m.samples[probeID] {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
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

func (m *memSamples) CompactBefore(_ context.Context, cutoff time.Time) (uint64, error) {
	var removed uint64
	for id, ss := range m.samples {
		kept := ss[:0]
		for _, s := range ss {
			if s.Timestamp.Before(cutoff) {
				removed++

				continue
			}
			kept = append(kept, s)
		}
		m.samples[id] = kept
	}

	return removed, nil
}

func (m *memSamples) ProbeIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.samples))
	for id := range m.samples {
		if len(m.samples[id]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}

func seed(t *testing.T, repo *memSamples, probeID string, values []float64) {
	t.Helper()
	for i, v := range values {
		err := repo.Append(context.Background(), metric.Sample{
			ProbeID:   probeID,
			RunID:     "run",
			Timestamp: baseTime.Add(time.Duration(i) * time.Second),
			Value:     v,
			Unit:      "ms",
		})
		require.Nil(t, err)
	}
}

func TestComputeStats(t *testing.T) {
	repo := newMemSamples()
	seed(t, repo, "latency", []float64{10, 20, 30, 40, 50})

	agg := aggregate.New(repo, aggregate.DefaultThreshold, nil)
	report, err := agg.Compute(context.Background(), "latency", baseTime, baseTime.Add(time.Minute))
	require.Nil(t, err)
	require.NotNil(t, report.Stats)

	s := report.Stats
	assert.Equal(t, uint64(5), s.Count)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 50.0, s.Max)
	assert.InDelta(t, 30.0, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(200), s.StdDev, 1e-9)
	assert.Equal(t, 30.0, s.P50)
	assert.Equal(t, 50.0, s.P95)
	assert.Equal(t, 50.0, s.P99)
	assert.Equal(t, 10.0, s.First)
	assert.Equal(t, 50.0, s.Last)
	assert.Equal(t, "ms", s.Unit)
	assert.Equal(t, 40.0, report.BaselineDelta)
}

func TestComputeEmptyWindow(t *testing.T) {
	repo := newMemSamples()
	seed(t, repo, "latency", []float64{10, 20})

	agg := aggregate.New(repo, aggregate.DefaultThreshold, nil)

	cases := []struct {
		desc    string
		probeID string
		start   time.Time
		end     time.Time
	}{
		{
			desc:    "unknown probe",
			probeID: "unknown",
			start:   baseTime,
			end:     baseTime.Add(time.Minute),
		},
		{
			desc:    "window before series",
			probeID: "latency",
			start:   baseTime.Add(-time.Hour),
			end:     baseTime.Add(-time.Minute),
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			report, err := agg.Compute(context.Background(), tc.probeID, tc.start, tc.end)
			require.Nil(t, err)
			assert.Nil(t, report.Stats)
			assert.False(t, report.Anomaly)
		})
	}
}

func TestComputeAnomaly(t *testing.T) {
	repo := newMemSamples()
	// Stable series with a final outlier far beyond three sigma.
	values := make([]float64, 0, 101)
	for i := 0; i < 100; i++ {
		values = append(values, 100+float64(i%2))
	}
	values = append(values, 500)
	seed(t, repo, "spiky", values)

	// Flat series never trips the detector.
	seed(t, repo, "flat", []float64{5, 5, 5, 5})

	agg := aggregate.New(repo, aggregate.DefaultThreshold, nil)

	report, err := agg.Compute(context.Background(), "spiky", baseTime, baseTime.Add(time.Hour))
	require.Nil(t, err)
	assert.True(t, report.Anomaly)

	report, err = agg.Compute(context.Background(), "flat", baseTime, baseTime.Add(time.Hour))
	require.Nil(t, err)
	assert.False(t, report.Anomaly)
}

func TestThresholdOverride(t *testing.T) {
	repo := newMemSamples()
	agg := aggregate.New(repo, 3.0, map[string]float64{"tuned": 1.5})

	assert.Equal(t, 1.5, agg.Threshold("tuned"))
	assert.Equal(t, 3.0, agg.Threshold("other"))

	// An override loosens or tightens detection for one probe only.
	values := make([]float64, 0, 51)
	for i := 0; i < 50; i++ {
		values = append(values, 100+float64(i%2))
	}
	values = append(values, 101.5)
	seed(t, repo, "tuned", values)

	report, err := agg.Compute(context.Background(), "tuned", baseTime, baseTime.Add(time.Hour))
	require.Nil(t, err)
	assert.True(t, report.Anomaly)

	// The same series under the default threshold is unremarkable.
	report, err = aggregate.New(repo, 3.0, nil).Compute(context.Background(), "tuned", baseTime, baseTime.Add(time.Hour))
	require.Nil(t, err)
	assert.False(t, report.Anomaly)
}

func TestNewFallsBackToDefaultThreshold(t *testing.T) {
	repo := newMemSamples()
	agg := aggregate.New(repo, 0, nil)
	assert.Equal(t, aggregate.DefaultThreshold, agg.Threshold("any"))
}
