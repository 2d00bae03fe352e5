package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/hostdiag/probekit/pkg/storage"
)

type archiveRepo struct {
	db *Database
}

// NewArchiveRepository returns the cold store. It is expected to be
// backed by its own Database so rotation never competes with the hot
// store's keyspace.
func NewArchiveRepository(db *Database) storage.ArchiveRepository {
	return &archiveRepo{db: db}
}

type archiveEntry struct {
	Window storage.Window `json:"window"`
	Blob   []byte         `json:"blob"`
}

func archiveKey(probeID string, start, end time.Time) []byte {
	return []byte(archivePrefix + probeID + ":" + encodeTime(start) + ":" + encodeTime(end))
}

func (r *archiveRepo) Put(ctx context.Context, w storage.Window, blob []byte) error {
	val, err := json.Marshal(archiveEntry{Window: w, Blob: blob})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.set(archiveKey(w.ProbeID, w.Start, w.End), val)
}

func (r *archiveRepo) Get(ctx context.Context, probeID string, start, end time.Time) ([]byte, error) {
	val, err := r.db.get(archiveKey(probeID, start, end))
	if err != nil {
		return nil, err
	}
	var e archiveEntry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return e.Blob, nil
}

func (r *archiveRepo) Has(ctx context.Context, probeID string, start, end time.Time) (bool, error) {
	_, err := r.db.get(archiveKey(probeID, start, end))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *archiveRepo) List(ctx context.Context, probeID string) ([]storage.Window, error) {
	windows := make([]storage.Window, 0)
	err := r.db.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(archivePrefix)
		if probeID != "" {
			prefix = []byte(archivePrefix + probeID + ":")
		}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			parts := strings.Split(strings.TrimPrefix(key, archivePrefix), ":")
			if len(parts) != 3 {
				continue
			}
			start, err := decodeTime(parts[1])
			if err != nil {
				continue
			}
			end, err := decodeTime(parts[2])
			if err != nil {
				continue
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e archiveEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("unmarshal error: %w", err)
			}
			w := e.Window
			w.ProbeID, w.Start, w.End = parts[0], start, end
			windows = append(windows, w)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return windows, nil
}
