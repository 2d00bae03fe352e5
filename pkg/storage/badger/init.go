// Package badger implements the hot metrics store and the cold
// archive store on an embedded badger database. Writes are synced to
// stable storage before they are acknowledged; reads run inside View
// transactions and therefore observe a snapshot as of scan start.
package badger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hostdiag/probekit/pkg/storage"
)

type Database struct {
	db *badger.DB
}

func NewDatabase(path string) (*Database, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	// Acknowledged writes must survive a process crash.
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrDBConnection, err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) get(key []byte) ([]byte, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return val, nil
}

func (d *Database) set(key, val []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return nil
}

// setNX writes key only if it is absent. A duplicate is a caller bug
// and is surfaced, never silently overwritten.
func (d *Database) setNX(key, val []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return storage.ErrDuplicateKey
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		return txn.Set(key, val)
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return storage.ErrDuplicateKey
		}

		return fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	return nil
}

// compactBefore deletes every key under prefix whose timestamp segment
// is older than cutoff. Keys are collected under a snapshot first and
// deleted in bounded batches so large windows do not exceed the
// transaction size.
func (d *Database) compactBefore(prefix string, cutoff time.Time) (uint64, error) {
	var victims [][]byte
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, err := keyTimestamp(string(key))
			if err != nil {
				continue
			}
			if ts.Before(cutoff) {
				victims = append(victims, key)
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
	}

	const batch = 1000
	for start := 0; start < len(victims); start += batch {
		end := min(start+batch, len(victims))
		err := d.db.Update(func(txn *badger.Txn) error {
			for _, key := range victims[start:end] {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			return uint64(start), fmt.Errorf("%w: %w", storage.ErrIOFailure, err)
		}
	}

	return uint64(len(victims)), nil
}

// Keys encode the timestamp as zero-padded nanoseconds so that
// lexicographic iteration order is also temporal order:
//
//	samples:{probe}:{ts:020d}:{run}
//	failures:{probe}:{ts:020d}:{run}
//	runs:{id}
//	archive:{probe}:{start:020d}:{end:020d}
const (
	samplePrefix  = "samples:"
	failurePrefix = "failures:"
	runPrefix     = "runs:"
	archivePrefix = "archive:"
)

func encodeTime(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func decodeTime(s string) (time.Time, error) {
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(0, ns), nil
}

func seriesKey(prefix, probeID string, ts time.Time, runID string) []byte {
	return []byte(prefix + probeID + ":" + encodeTime(ts) + ":" + runID)
}

// keyTimestamp extracts the timestamp segment from a series key.
func keyTimestamp(key string) (time.Time, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("malformed key %q", key)
	}

	return decodeTime(parts[2])
}

func keyProbeID(key, prefix string) (string, error) {
	rest := strings.TrimPrefix(key, prefix)
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return "", fmt.Errorf("malformed key %q", key)
	}

	return rest[:i], nil
}
