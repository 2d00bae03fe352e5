// Package archive rotates expired raw samples out of the hot store
// into compressed cold storage. Rotation is trigger-driven: the
// archiver exposes Rotate and never schedules itself.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/storage"
)

var (
	ErrColdWrite         = errors.New("cold storage write failed")
	ErrRetentionTooShort = errors.New("retention below configured minimum window")
)

// Report describes one rotation pass.
type Report struct {
	Cutoff   time.Time        `json:"cutoff"`
	Windows  []storage.Window `json:"windows"`
	Archived uint64           `json:"archived"`
	Removed  uint64           `json:"removed"`
}

type Archiver struct {
	samples      storage.SampleRepository
	cold         storage.ArchiveRepository
	codec        Codec
	minRetention time.Duration
	now          func() time.Time
}

func New(samples storage.SampleRepository, cold storage.ArchiveRepository, codec Codec, minRetention time.Duration) *Archiver {
	return &Archiver{
		samples:      samples,
		cold:         cold,
		codec:        codec,
		minRetention: minRetention,
		now:          time.Now,
	}
}

// Rotate archives every probe series' samples older than retention and
// then compacts the hot store. The compress-then-delete ordering is
// mandatory: the hot store is only compacted after every cold write
// has been acknowledged as durable, so a crash mid-rotation never
// loses data. Re-running Rotate over an already-rotated range is a
// no-op.
func (a *Archiver) Rotate(ctx context.Context, retention time.Duration) (Report, error) {
	if retention < a.minRetention {
		return Report{}, fmt.Errorf("%w: %s < %s", ErrRetentionTooShort, retention, a.minRetention)
	}

	cutoff := a.now().Add(-retention)
	report := Report{Cutoff: cutoff}

	ids, err := a.samples.ProbeIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	// Everything strictly before the cutoff is eligible; CompactBefore
	// uses the same bound, so archive and delete cover the same range.
	end := cutoff.Add(-time.Nanosecond)
	for _, id := range ids {
		var window []metric.Sample
		err := a.samples.RangeScan(ctx, id, time.Unix(0, 0), end, func(s metric.Sample) error {
			window = append(window, s)

			return nil
		})
		if err != nil {
			return Report{}, err
		}
		if len(window) == 0 {
			continue
		}

		raw, err := json.Marshal(window)
		if err != nil {
			return Report{}, fmt.Errorf("%w: %w", ErrCodec, err)
		}
		blob, err := compress(a.codec, raw)
		if err != nil {
			return Report{}, err
		}

		w := storage.Window{
			ProbeID: id,
			Start:   window[0].Timestamp,
			End:     window[len(window)-1].Timestamp,
			Samples: uint64(len(window)),
		}
		if err := a.cold.Put(ctx, w, blob); err != nil {
			return Report{}, fmt.Errorf("%w: %w", ErrColdWrite, err)
		}
		report.Windows = append(report.Windows, w)
		report.Archived += w.Samples
	}

	removed, err := a.samples.CompactBefore(ctx, cutoff)
	if err != nil {
		return Report{}, err
	}
	report.Removed = removed

	return report, nil
}

// Restore decompresses one archived window back into samples.
func (a *Archiver) Restore(ctx context.Context, probeID string, start, end time.Time) ([]metric.Sample, error) {
	blob, err := a.cold.Get(ctx, probeID, start, end)
	if err != nil {
		return nil, err
	}
	raw, err := Decompress(blob)
	if err != nil {
		return nil, err
	}
	var window []metric.Sample
	if err := json.Unmarshal(raw, &window); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}

	return window, nil
}

// Windows lists the archived windows for a probe, or all probes when
// probeID is empty.
func (a *Archiver) Windows(ctx context.Context, probeID string) ([]storage.Window, error) {
	return a.cold.List(ctx, probeID)
}
