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

type failureRepo struct {
	db *Database
}

func NewFailureRepository(db *Database) storage.FailureRepository {
	return &failureRepo{db: db}
}

func (r *failureRepo) Append(ctx context.Context, f metric.Failure) error {
	key := seriesKey(failurePrefix, f.ProbeID, f.Timestamp, f.RunID)
	val, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.setNX(key, val)
}

func (r *failureRepo) ListByRun(ctx context.Context, runID string) ([]metric.Failure, error) {
	failures := make([]metric.Failure, 0)
	err := r.db.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(failurePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var f metric.Failure
			if err := json.Unmarshal(val, &f); err != nil {
				return fmt.Errorf("unmarshal error: %w", err)
			}
			if f.RunID == runID {
				failures = append(failures, f)
			}
		}

		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return failures, nil
}

func (r *failureRepo) CompactBefore(ctx context.Context, cutoff time.Time) (uint64, error) {
	return r.db.compactBefore(failurePrefix, cutoff)
}
