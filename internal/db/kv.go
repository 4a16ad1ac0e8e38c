package db

import "context"

// KV is an ordered, durable byte key-value store holding the primary copy of records.
type KV interface {
	Pinger
	Get(ctx context.Context, key []byte) ([]byte, error)
	Has(ctx context.Context, key []byte) (bool, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// DeletePrefix atomically removes every key starting with any of the prefixes.
	DeletePrefix(ctx context.Context, prefixes ...[]byte) error
	// Keys returns keys starting with prefix in ascending order, prefix stripped.
	Keys(ctx context.Context, prefix []byte) ([][]byte, error)
	Count(ctx context.Context, prefix []byte) (int, error)
	Close() error
}
