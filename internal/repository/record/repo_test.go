package record

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/db/pebblekv"
	"github.com/kailas-cloud/zelastic/internal/domain"
	domrecord "github.com/kailas-cloud/zelastic/internal/domain/record"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	s, err := pebblekv.Open(pebblekv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

func TestPutGet_RoundTrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	rec := domrecord.New(domrecord.F("foo", "bar"), domrecord.F("n", 3))
	if err := repo.Put(ctx, "c", "id-1", rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, "c", "id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(rec) {
		t.Errorf("Get = %v, want %v", got.ToMap(), rec.ToMap())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Get(context.Background(), "c", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var ke *domain.KeyError
	if !errors.As(err, &ke) || ke.ID != "missing" || ke.Container != "c" {
		t.Errorf("expected KeyError for c/missing, got %v", err)
	}
}

func TestExistsDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_ = repo.Put(ctx, "c", "k", domrecord.New())
	ok, err := repo.Exists(ctx, "c", "k")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	if err := repo.Delete(ctx, "c", "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = repo.Exists(ctx, "c", "k")
	if ok {
		t.Error("record still exists")
	}
}

func TestIDsAndCount_ScopedToContainer(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		_ = repo.Put(ctx, "one", id, domrecord.New())
	}
	_ = repo.Put(ctx, "one-two", "z", domrecord.New())

	ids, err := repo.IDs(ctx, "one")
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("IDs = %v", ids)
	}

	n, err := repo.Count(ctx, "one")
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, []byte) ([]byte, error)    { return nil, f.err }
func (f failingStore) Has(context.Context, []byte) (bool, error)      { return false, f.err }
func (f failingStore) Set(context.Context, []byte, []byte) error      { return f.err }
func (f failingStore) Delete(context.Context, []byte) error           { return f.err }
func (f failingStore) Keys(context.Context, []byte) ([][]byte, error) { return nil, f.err }
func (f failingStore) Count(context.Context, []byte) (int, error)     { return 0, f.err }

func TestStoreErrorsPropagate(t *testing.T) {
	repo := New(failingStore{err: db.ErrClosed})
	ctx := context.Background()

	if _, err := repo.Get(ctx, "c", "k"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Get: %v", err)
	}
	if _, err := repo.Exists(ctx, "c", "k"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Exists: %v", err)
	}
	if err := repo.Put(ctx, "c", "k", domrecord.New()); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Put: %v", err)
	}
	if err := repo.Delete(ctx, "c", "k"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Delete: %v", err)
	}
	if _, err := repo.IDs(ctx, "c"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("IDs: %v", err)
	}
	if _, err := repo.Count(ctx, "c"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Count: %v", err)
	}
}
