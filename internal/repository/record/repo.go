package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/domain"
	domrecord "github.com/kailas-cloud/zelastic/internal/domain/record"
)

// store is the consumer interface for records (ISP).
type store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Has(ctx context.Context, key []byte) (bool, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Keys(ctx context.Context, prefix []byte) ([][]byte, error)
	Count(ctx context.Context, prefix []byte) (int, error)
}

// Repo is the primary, authoritative copy of every record.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the record stored under id; domain.ErrNotFound when absent.
func (r *Repo) Get(ctx context.Context, container, id string) (domrecord.Record, error) {
	data, err := r.store.Get(ctx, domain.RecordKey(container, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrecord.Record{}, domain.NewNotFound(container, id)
		}
		return domrecord.Record{}, fmt.Errorf("get record %s/%s: %w", container, id, err)
	}
	rec, err := domrecord.Unmarshal(data)
	if err != nil {
		return domrecord.Record{}, fmt.Errorf("decode record %s/%s: %w", container, id, err)
	}
	return rec, nil
}

// Exists reports whether id is present.
func (r *Repo) Exists(ctx context.Context, container, id string) (bool, error) {
	ok, err := r.store.Has(ctx, domain.RecordKey(container, id))
	if err != nil {
		return false, fmt.Errorf("check record %s/%s: %w", container, id, err)
	}
	return ok, nil
}

// Put stores rec under id, replacing any previous record.
func (r *Repo) Put(ctx context.Context, container, id string, rec domrecord.Record) error {
	data, err := domrecord.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, domain.RecordKey(container, id), data); err != nil {
		return fmt.Errorf("put record %s/%s: %w", container, id, err)
	}
	return nil
}

// Delete removes id; absent ids are not an error at this layer.
func (r *Repo) Delete(ctx context.Context, container, id string) error {
	if err := r.store.Delete(ctx, domain.RecordKey(container, id)); err != nil {
		return fmt.Errorf("delete record %s/%s: %w", container, id, err)
	}
	return nil
}

// IDs returns every identity in the container in ascending byte order.
func (r *Repo) IDs(ctx context.Context, container string) ([]string, error) {
	keys, err := r.store.Keys(ctx, domain.RecordPrefix(container))
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", container, err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = string(k)
	}
	return ids, nil
}

// Count returns the number of records in the container.
func (r *Repo) Count(ctx context.Context, container string) (int, error) {
	n, err := r.store.Count(ctx, domain.RecordPrefix(container))
	if err != nil {
		return 0, fmt.Errorf("count records %s: %w", container, err)
	}
	return n, nil
}
