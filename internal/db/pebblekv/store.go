package pebblekv

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/kailas-cloud/zelastic/internal/db"
)

// Compile-time check: Store implements db.KV.
var _ db.KV = (*Store)(nil)

// Config holds PebbleDB options.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in an in-memory filesystem.
	InMemory bool
	// NoSync skips fsync on every write.
	NoSync bool
	// BlockCacheSize is the block cache size in bytes (default 64MB).
	BlockCacheSize int64
}

// Store implements db.KV on PebbleDB.
type Store struct {
	db     *pebble.DB
	wo     *pebble.WriteOptions
	closed atomic.Bool
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("path is required")
	}

	cacheSize := cfg.BlockCacheSize
	if cacheSize <= 0 {
		cacheSize = 64 << 20
	}
	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()

	opts := &pebble.Options{
		Cache: cache,
		Levels: []pebble.LevelOptions{
			{FilterPolicy: bloom.FilterPolicy(10)},
		},
	}

	path := cfg.Path
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
		path = ""
	}

	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	wo := pebble.Sync
	if cfg.NoSync {
		wo = pebble.NoSync
	}

	return &Store{db: pdb, wo: wo}, nil
}

// DB exposes the underlying database for metrics collection.
func (s *Store) DB() *pebble.DB { return s.db }

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	return nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Has reports whether key is present.
func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// Set stores value under key, overwriting any previous value.
func (s *Store) Set(_ context.Context, key, value []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	if err := s.db.Set(key, value, s.wo); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Delete removes key; absent keys are not an error.
func (s *Store) Delete(_ context.Context, key []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	if err := s.db.Delete(key, s.wo); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

// DeletePrefix removes every key under the prefixes in a single batch.
func (s *Store) DeletePrefix(_ context.Context, prefixes ...[]byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	if len(prefixes) == 0 {
		return nil
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, p := range prefixes {
		upper := upperBound(p)
		if upper == nil {
			return &db.Error{Op: db.OpDeleteRange, Err: fmt.Errorf("prefix %q has no upper bound", p)}
		}
		if err := b.DeleteRange(p, upper, nil); err != nil {
			return &db.Error{Op: db.OpDeleteRange, Err: err}
		}
	}
	if err := b.Commit(s.wo); err != nil {
		return &db.Error{Op: db.OpDeleteRange, Err: err}
	}
	return nil
}

// Keys returns the keys under prefix in ascending order with the prefix stripped.
func (s *Store) Keys(_ context.Context, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.scan(prefix, func(k []byte) {
		out := make([]byte, len(k)-len(prefix))
		copy(out, k[len(prefix):])
		keys = append(keys, out)
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Count returns the number of keys under prefix.
func (s *Store) Count(_ context.Context, prefix []byte) (int, error) {
	n := 0
	if err := s.scan(prefix, func([]byte) { n++ }); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) scan(prefix []byte, fn func(key []byte)) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return &db.Error{Op: db.OpIterate, Err: err}
	}

	for it.First(); it.Valid(); it.Next() {
		fn(it.Key())
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return &db.Error{Op: db.OpIterate, Err: err}
	}
	if err := it.Close(); err != nil {
		return &db.Error{Op: db.OpIterate, Err: err}
	}
	return nil
}

// Close flushes and closes the database. Later calls are no-ops.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return &db.Error{Op: db.OpClose, Err: err}
	}
	return nil
}

// upperBound returns the smallest key greater than every key with the given prefix,
// or nil when no such key exists (prefix is empty or all 0xff).
func upperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
