// Package export translates aggregate reports into the schema the
// presentation layer consumes. It is a read-only facade: no mutation,
// no caching, safe for concurrent use.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/hostdiag/probekit/pkg/aggregate"
)

const (
	StatusEmpty     = "empty"
	StatusOK        = "ok"
	StatusAnomalous = "anomalous"
)

// Report is the display schema for one probe window.
type Report struct {
	ProbeID       string    `json:"probe_id"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	Status        string    `json:"status"`
	Headline      string    `json:"headline"`
	SampleCount   uint64    `json:"sample_count"`
	Unit          string    `json:"unit,omitempty"`
	Min           float64   `json:"min"`
	Max           float64   `json:"max"`
	Mean          float64   `json:"mean"`
	StdDev        float64   `json:"stddev"`
	P50           float64   `json:"p50"`
	P95           float64   `json:"p95"`
	P99           float64   `json:"p99"`
	BaselineDelta float64   `json:"baseline_delta"`
}

type Exporter struct {
	agg *aggregate.Aggregator
}

func New(agg *aggregate.Aggregator) *Exporter {
	return &Exporter{agg: agg}
}

func (e *Exporter) Export(ctx context.Context, probeID string, start, end time.Time) (Report, error) {
	r, err := e.agg.Compute(ctx, probeID, start, end)
	if err != nil {
		return Report{}, err
	}

	return Translate(r), nil
}

// Translate converts an aggregate report. It is a pure function of its
// input.
func Translate(r aggregate.Report) Report {
	out := Report{
		ProbeID:     r.ProbeID,
		WindowStart: r.Start,
		WindowEnd:   r.End,
		Status:      StatusEmpty,
	}
	if r.Stats == nil {
		out.Headline = "no samples in window"

		return out
	}

	s := r.Stats
	out.Status = StatusOK
	if r.Anomaly {
		out.Status = StatusAnomalous
	}
	out.SampleCount = s.Count
	out.Unit = s.Unit
	out.Min, out.Max, out.Mean, out.StdDev = s.Min, s.Max, s.Mean, s.StdDev
	out.P50, out.P95, out.P99 = s.P50, s.P95, s.P99
	out.BaselineDelta = r.BaselineDelta
	out.Headline = fmt.Sprintf("%d samples, mean %.2f %s (delta %+.2f)", s.Count, s.Mean, s.Unit, r.BaselineDelta)

	return out
}
