package zelastic

import (
	"context"
	"fmt"
	"reflect"
)

// TypedContainer is a generic, schema-first view of a container.
// Stored and indexed fields are inferred from T's struct tags at construction time.
type TypedContainer[T any] struct {
	name  string
	store *Store
	meta  *schemaMeta
}

// NewTypedContainer creates a typed handle for the named container.
// T must be a struct with zelastic tags. The schema is parsed once and cached.
func NewTypedContainer[T any](store *Store, name string) (*TypedContainer[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new typed container %q: %w", name, err)
	}
	return &TypedContainer[T]{name: name, store: store, meta: meta}, nil
}

// Name returns the container name.
func (tc *TypedContainer[T]) Name() string { return tc.name }

// Ensure opens the container and declares every indexed field (idempotent).
func (tc *TypedContainer[T]) Ensure(ctx context.Context) error {
	c, err := tc.container(ctx)
	if err != nil {
		return err
	}
	current, err := c.Indexes(ctx)
	if err != nil {
		return fmt.Errorf("ensure %q: %w", tc.name, err)
	}
	declared := make(map[IndexInfo]bool, len(current))
	for _, ix := range current {
		declared[ix] = true
	}
	for _, ix := range tc.meta.indexes() {
		if declared[ix] {
			continue
		}
		if err := c.AddIndex(ctx, ix.Field, ix.Type); err != nil {
			return fmt.Errorf("ensure %q: %w", tc.name, err)
		}
	}
	return nil
}

// Insert stores item and returns its id. An empty id field gets a generated id.
func (tc *TypedContainer[T]) Insert(ctx context.Context, item T) (string, error) {
	c, err := tc.container(ctx)
	if err != nil {
		return "", err
	}
	v := reflect.ValueOf(item)
	return c.Insert(ctx, tc.meta.toRecord(v), tc.meta.id(v))
}

// Update replaces the stored item with the same id.
func (tc *TypedContainer[T]) Update(ctx context.Context, item T) error {
	c, err := tc.container(ctx)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(item)
	return c.Update(ctx, tc.meta.toRecord(v), tc.meta.id(v))
}

// Get retrieves a typed item by id.
func (tc *TypedContainer[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	c, err := tc.container(ctx)
	if err != nil {
		return zero, err
	}
	rec, err := c.Get(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("get: %w", err)
	}
	return tc.decode(id, rec)
}

// Delete removes an item by id.
func (tc *TypedContainer[T]) Delete(ctx context.Context, id string) error {
	c, err := tc.container(ctx)
	if err != nil {
		return err
	}
	return c.Delete(ctx, id)
}

// Count returns the number of items in the container.
func (tc *TypedContainer[T]) Count(ctx context.Context) (int, error) {
	c, err := tc.container(ctx)
	if err != nil {
		return 0, err
	}
	return c.Size(ctx)
}

// Search returns a fluent search builder for this container.
func (tc *TypedContainer[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{tc: tc}
}

func (tc *TypedContainer[T]) container(ctx context.Context) (*Container, error) {
	return tc.store.Container(ctx, tc.name)
}

func (tc *TypedContainer[T]) decode(id string, rec Record) (T, error) {
	var zero T
	v, err := tc.meta.fromRecord(id, rec)
	if err != nil {
		return zero, err
	}
	item, ok := v.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("zelastic: type assertion to %T failed", zero)
	}
	return item, nil
}
