package result

import (
	"context"
	"fmt"
	"iter"

	"github.com/kailas-cloud/zelastic/internal/domain"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
)

// Getter resolves a record identity against the primary store.
type Getter interface {
	Get(ctx context.Context, id string) (record.Record, error)
}

// Resolver is an ordered list of search hits resolved lazily through a Getter.
// Every access reads the primary store, so callers always see current data.
type Resolver struct {
	getter Getter
	ids    []string
	total  int
}

// New creates a resolver over ids. total is the engine-reported match count.
func New(g Getter, ids []string, total int) *Resolver {
	return &Resolver{getter: g, ids: ids, total: total}
}

// Len returns the number of hits without resolving them.
func (r *Resolver) Len() int { return len(r.ids) }

// Total returns the number of matches reported by the engine, which exceeds
// Len when the hit list was capped.
func (r *Resolver) Total() int { return r.total }

// IDs returns a copy of the hit identities in order.
func (r *Resolver) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// At resolves the hit at position i. Negative positions count from the end.
func (r *Resolver) At(ctx context.Context, i int) (record.Record, error) {
	n := len(r.ids)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return record.Record{}, fmt.Errorf("position %d of %d hits: %w", i, n, domain.ErrIndexOutOfRange)
	}
	return r.getter.Get(ctx, r.ids[i]) //nolint:wrapcheck // container errors carry the identity
}

// Slice resolves the hits in [lo, hi). Bounds follow slice-expression clamping:
// negative bounds count from the end and overlong bounds are cut to Len.
func (r *Resolver) Slice(ctx context.Context, lo, hi int) ([]record.Record, error) {
	lo, hi = r.clamp(lo), r.clamp(hi)
	if lo >= hi {
		return []record.Record{}, nil
	}
	out := make([]record.Record, 0, hi-lo)
	for _, id := range r.ids[lo:hi] {
		rec, err := r.getter.Get(ctx, id)
		if err != nil {
			return nil, err //nolint:wrapcheck // container errors carry the identity
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Resolver) clamp(i int) int {
	n := len(r.ids)
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

// All yields every hit in order, resolving one record per step. Iteration stops
// after the first resolution error has been yielded. The sequence can be ranged
// over any number of times.
func (r *Resolver) All(ctx context.Context) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		for _, id := range r.ids {
			rec, err := r.getter.Get(ctx, id)
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Collect resolves every hit.
func (r *Resolver) Collect(ctx context.Context) ([]record.Record, error) {
	return r.Slice(ctx, 0, len(r.ids))
}
