package container

import (
	"context"
	"testing"

	"github.com/kailas-cloud/zelastic/internal/db/pebblekv"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn          func(ctx context.Context, key []byte) ([]byte, error)
	setFn          func(ctx context.Context, key, value []byte) error
	deletePrefixFn func(ctx context.Context, prefixes ...[]byte) error
	keysFn         func(ctx context.Context, prefix []byte) ([][]byte, error)
}

func (m *mockStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) Set(ctx context.Context, key, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) DeletePrefix(ctx context.Context, prefixes ...[]byte) error {
	if m.deletePrefixFn != nil {
		return m.deletePrefixFn(ctx, prefixes...)
	}
	return nil
}

func (m *mockStore) Keys(ctx context.Context, prefix []byte) ([][]byte, error) {
	if m.keysFn != nil {
		return m.keysFn(ctx, prefix)
	}
	return nil, nil
}

func newMemStore(t *testing.T) *pebblekv.Store {
	t.Helper()
	s, err := pebblekv.Open(pebblekv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
