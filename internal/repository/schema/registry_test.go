package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/zelastic/internal/db/pebblekv"
	"github.com/kailas-cloud/zelastic/internal/domain"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
)

func newRegistry(t *testing.T) (*Registry, *pebblekv.Store) {
	t.Helper()
	s, err := pebblekv.Open(pebblekv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return NewRegistry(s), s
}

func TestGet_UnknownContainerIsEmpty(t *testing.T) {
	reg, _ := newRegistry(t)
	s, err := reg.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.IsEmpty() {
		t.Errorf("schema = %v", s.Definitions())
	}
}

func TestSetGet(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	if _, err := reg.Set(ctx, "c", "foo", "str"); err != nil {
		t.Fatalf("Set foo: %v", err)
	}
	if _, err := reg.Set(ctx, "c", "age", "int"); err != nil {
		t.Fatalf("Set age: %v", err)
	}
	if _, err := reg.Set(ctx, "other", "x", "bool"); err != nil {
		t.Fatalf("Set other: %v", err)
	}

	s, err := reg.Get(ctx, "c")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	d, ok := s.Lookup("foo")
	if !ok || d.Type() != domschema.Str {
		t.Errorf("foo = %v, %v", d, ok)
	}
	if _, ok := s.Lookup("x"); ok {
		t.Error("definition leaked across containers")
	}
}

func TestSet_Overwrites(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	_, _ = reg.Set(ctx, "c", "foo", "str")
	_, _ = reg.Set(ctx, "c", "foo", "full")

	s, _ := reg.Get(ctx, "c")
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
	if d, _ := s.Lookup("foo"); d.Type() != domschema.Full {
		t.Errorf("type = %s, want full", d.Type())
	}
}

func TestSet_InvalidTypeLeavesSchemaUnchanged(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	_, _ = reg.Set(ctx, "c", "foo", "str")
	_, err := reg.Set(ctx, "c", "bar", "geo")
	if !errors.Is(err, domain.ErrInvalidIndexType) {
		t.Fatalf("expected ErrInvalidIndexType, got %v", err)
	}

	s, _ := reg.Get(ctx, "c")
	if s.Len() != 1 {
		t.Errorf("schema changed: %v", s.Definitions())
	}
}

func TestGet_CorruptEntry(t *testing.T) {
	reg, kv := newRegistry(t)
	ctx := context.Background()

	_ = kv.Set(ctx, domain.SchemaKey("c", "bad"), []byte("vector"))
	_, err := reg.Get(ctx, "c")
	if !errors.Is(err, domain.ErrInvalidIndexType) {
		t.Errorf("expected ErrInvalidIndexType, got %v", err)
	}
}
