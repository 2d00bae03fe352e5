package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/storage"
)

type sampleRepo struct {
	db *Database
}

func NewSampleRepository(db *Database) storage.SampleRepository {
	return &sampleRepo{db: db}
}

func (r *sampleRepo) Append(ctx context.Context, s metric.Sample) error {
	key := seriesKey(samplePrefix, s.ProbeID, s.Timestamp, s.RunID)
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.setNX(key, val)
}

func (r *sampleRepo) RangeScan(ctx context.Context, probeID string, start, end time.Time, fn func(metric.Sample) error) error {
	prefix := []byte(samplePrefix + probeID + ":")
	seek := []byte(samplePrefix + probeID + ":" + encodeTime(start))

	err := r.db.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			ts, err := keyTimestamp(string(it.Item().Key()))
			if err != nil {
				continue
			}
			if ts.After(end) {
				break
			}

			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var s metric.Sample
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("unmarshal error: %w", err)
			}
			if err := fn(s); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return nil
}

func (r *sampleRepo) ListRange(ctx context.Context, probeID string, start, end time.Time, offset, limit uint64) ([]metric.Sample, uint64, error) {
	samples := make([]metric.Sample, 0, limit)
	var total uint64
	err := r.RangeScan(ctx, probeID, start, end, func(s metric.Sample) error {
		if total >= offset && uint64(len(samples)) < limit {
			samples = append(samples, s)
		}
		total++

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return samples, total, nil
}

func (r *sampleRepo) CompactBefore(ctx context.Context, cutoff time.Time) (uint64, error) {
	return r.db.compactBefore(samplePrefix, cutoff)
}

func (r *sampleRepo) ProbeIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	err := r.db.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(samplePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := keyProbeID(string(it.Item().Key()), samplePrefix)
			if err != nil {
				continue
			}
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return ids, nil
}
