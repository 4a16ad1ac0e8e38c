package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/domain/search/filter"
)

// mockEngine implements the consumer interface for tests.
type mockEngine struct {
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	replaceHashFn func(ctx context.Context, key string, fields map[string]string) error
	applyFn       func(ctx context.Context, ops []db.HashOp) error
	delFn         func(ctx context.Context, keys ...string) error
	searchFn      func(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

func (m *mockEngine) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockEngine) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockEngine) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockEngine) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockEngine) ReplaceHash(ctx context.Context, key string, fields map[string]string) error {
	if m.replaceHashFn != nil {
		return m.replaceHashFn(ctx, key, fields)
	}
	return nil
}

func (m *mockEngine) Apply(ctx context.Context, ops []db.HashOp) error {
	if m.applyFn != nil {
		return m.applyFn(ctx, ops)
	}
	return nil
}

func (m *mockEngine) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockEngine) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// staticSchemas serves a fixed schema per container.
type staticSchemas map[string]domschema.Schema

func (s staticSchemas) Get(_ context.Context, container string) (domschema.Schema, error) {
	return s[container], nil
}

func testSchema() domschema.Schema {
	return domschema.NewSchema(
		domschema.Reconstruct("name", domschema.Str),
		domschema.Reconstruct("bio", domschema.Full),
		domschema.Reconstruct("active", domschema.Bool),
		domschema.Reconstruct("age", domschema.Int),
		domschema.Reconstruct("score", domschema.Float),
		domschema.Reconstruct("born", domschema.Datetime),
	)
}

func newTestAdapter(t *testing.T, opts Options) (*Adapter, *mockEngine) {
	t.Helper()
	me := &mockEngine{}
	a := New(me, staticSchemas{"users": testSchema()}, opts, nil)
	return a, me
}

func mustMatch(t *testing.T, key string, v record.Value) filter.Condition {
	t.Helper()
	c, err := filter.NewMatch(key, v)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return c
}

func mustExpression(t *testing.T, must, should, mustNot []filter.Condition) filter.Expression {
	t.Helper()
	e, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	return e
}

func ptr(f float64) *float64 { return &f }
