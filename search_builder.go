package zelastic

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/zelastic/internal/domain/record"
	"github.com/kailas-cloud/zelastic/internal/domain/search/filter"
)

// SearchBuilder is a fluent builder for typed search queries.
// Conditions are ANDed.
type SearchBuilder[T any] struct {
	tc *TypedContainer[T]

	conds  []filter.Condition
	err    error
	sortBy string
	limit  int
}

// Where adds an exact match on an indexed field.
func (b *SearchBuilder[T]) Where(field string, value any) *SearchBuilder[T] {
	if b.err != nil {
		return b
	}
	v, err := record.ValueOf(value)
	if err != nil {
		b.err = fmt.Errorf("%w: where %q: %v", ErrInvalidFilter, field, err)
		return b
	}
	c, err := filter.NewMatch(field, v)
	if err != nil {
		b.err = fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		return b
	}
	b.conds = append(b.conds, c)
	return b
}

// Between adds an inclusive range on a numeric field. A nil bound is open.
func (b *SearchBuilder[T]) Between(field string, lo, hi *float64) *SearchBuilder[T] {
	if b.err != nil {
		return b
	}
	r, err := filter.NewRangeFilter(nil, lo, nil, hi)
	if err != nil {
		b.err = fmt.Errorf("%w: between %q: %v", ErrInvalidFilter, field, err)
		return b
	}
	c, err := filter.NewRange(field, r)
	if err != nil {
		b.err = fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		return b
	}
	b.conds = append(b.conds, c)
	return b
}

// SortBy orders hits ascending by an indexed field. Defaults to the record id.
func (b *SearchBuilder[T]) SortBy(field string) *SearchBuilder[T] {
	b.sortBy = field
	return b
}

// Limit caps the number of items returned. Zero means all hits.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.limit = n
	return b
}

// Results executes the search and returns the unresolved hit list.
func (b *SearchBuilder[T]) Results(ctx context.Context) (*Results, error) {
	if b.err != nil {
		return nil, b.err
	}
	expr, err := filter.NewExpression(b.conds, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	c, err := b.tc.container(ctx)
	if err != nil {
		return nil, err
	}
	return c.c.Search(ctx, expr, b.sortBy)
}

// Do executes the search and resolves every hit into T.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]T, error) {
	res, err := b.Results(ctx)
	if err != nil {
		return nil, err
	}

	ids := res.IDs()
	if b.limit > 0 && b.limit < len(ids) {
		ids = ids[:b.limit]
	}

	items := make([]T, 0, len(ids))
	for i, id := range ids {
		rec, err := res.At(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", id, err)
		}
		item, err := b.tc.decode(id, rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
