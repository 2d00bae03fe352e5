package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/hostdiag/probekit/pkg/storage"
	"github.com/hostdiag/probekit/run"
)

type runRepo struct {
	db *Database
}

func NewRunRepository(db *Database) storage.RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) Create(ctx context.Context, rn run.Run) (run.Run, error) {
	key := []byte(runPrefix + rn.ID)
	val, err := json.Marshal(rn)
	if err != nil {
		return run.Run{}, fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.setNX(key, val); err != nil {
		return run.Run{}, err
	}

	return rn, nil
}

func (r *runRepo) Get(ctx context.Context, id string) (run.Run, error) {
	key := []byte(runPrefix + id)
	val, err := r.db.get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return run.Run{}, storage.ErrRunNotFound
		}

		return run.Run{}, err
	}
	var rn run.Run
	if err := json.Unmarshal(val, &rn); err != nil {
		return run.Run{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return rn, nil
}

func (r *runRepo) Update(ctx context.Context, rn run.Run) error {
	key := []byte(runPrefix + rn.ID)
	val, err := json.Marshal(rn)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.set(key, val)
}

func (r *runRepo) List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error) {
	runs := make([]run.Run, 0, limit)
	var total uint64
	err := r.db.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if total >= offset && uint64(len(runs)) < limit {
				val, err := it.Item().ValueCopy(nil)
				if err != nil {
					return err
				}
				var rn run.Run
				if err := json.Unmarshal(val, &rn); err != nil {
					return fmt.Errorf("unmarshal error: %w", err)
				}
				runs = append(runs, rn)
			}
			total++
		}

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return runs, total, nil
}
