// Package aggregate computes trend statistics over stored sample
// ranges. Reports are derived, never persisted: they are a pure
// function of the hot store and can be recomputed at any time.
package aggregate

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/storage"
)

const (
	// DefaultThreshold is the anomaly threshold in standard
	// deviations when no per-probe override is configured.
	DefaultThreshold = 3.0

	// reservoirSize bounds the memory used for percentile
	// estimation. Windows smaller than this yield exact percentiles;
	// larger windows are reservoir-sampled.
	reservoirSize = 2048
)

type Stats struct {
	Count  uint64  `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	First  float64 `json:"first"`
	Last   float64 `json:"last"`
	Unit   string  `json:"unit,omitempty"`
}

// Report summarizes one probe series over a window. Stats is nil for
// an empty window; that is a valid report, not an error.
type Report struct {
	ProbeID       string    `json:"probe_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Stats         *Stats    `json:"stats,omitempty"`
	Anomaly       bool      `json:"anomaly"`
	BaselineDelta float64   `json:"baseline_delta"`
}

type Aggregator struct {
	samples   storage.SampleRepository
	threshold float64
	overrides map[string]float64
}

func New(samples storage.SampleRepository, threshold float64, overrides map[string]float64) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Aggregator{
		samples:   samples,
		threshold: threshold,
		overrides: overrides,
	}
}

// Threshold returns the anomaly threshold in effect for a probe.
func (a *Aggregator) Threshold(probeID string) float64 {
	if t, ok := a.overrides[probeID]; ok && t > 0 {
		return t
	}

	return a.threshold
}

// Compute aggregates one probe series over [start, end] in a single
// streaming pass. Mean and variance use Welford's recurrence so the
// window never has to fit in memory.
func (a *Aggregator) Compute(ctx context.Context, probeID string, start, end time.Time) (Report, error) {
	var (
		count       uint64
		mean, m2    float64
		minV, maxV  float64
		first, last float64
		unit        string
		reservoir   = make([]float64, 0, reservoirSize)
	)

	err := a.samples.RangeScan(ctx, probeID, start, end, func(s metric.Sample) error {
		v := s.Value
		count++
		if count == 1 {
			first, minV, maxV = v, v, v
			unit = s.Unit
		}
		last = v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)

		delta := v - mean
		mean += delta / float64(count)
		m2 += delta * (v - mean)

		if len(reservoir) < reservoirSize {
			reservoir = append(reservoir, v)
		} else if j := rand.Intn(int(count)); j < reservoirSize {
			reservoir[j] = v
		}

		return nil
	})
	if err != nil {
		return Report{}, err
	}

	report := Report{ProbeID: probeID, Start: start, End: end}
	if count == 0 {
		return report, nil
	}

	stddev := math.Sqrt(m2 / float64(count))
	sort.Float64s(reservoir)
	report.Stats = &Stats{
		Count:  count,
		Min:    minV,
		Max:    maxV,
		Mean:   mean,
		StdDev: stddev,
		P50:    percentile(reservoir, 0.50),
		P95:    percentile(reservoir, 0.95),
		P99:    percentile(reservoir, 0.99),
		First:  first,
		Last:   last,
		Unit:   unit,
	}
	report.BaselineDelta = last - first
	if stddev > 0 {
		report.Anomaly = math.Abs(last-mean) > a.Threshold(probeID)*stddev
	}

	return report, nil
}

// percentile is nearest-rank over a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}

	return sorted[rank]
}
