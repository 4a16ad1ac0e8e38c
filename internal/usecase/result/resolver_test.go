package result

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/zelastic/internal/domain"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
)

// --- Mocks ---

type mockGetter struct {
	records map[string]record.Record
	calls   []string
}

func (m *mockGetter) Get(_ context.Context, id string) (record.Record, error) {
	m.calls = append(m.calls, id)
	rec, ok := m.records[id]
	if !ok {
		return record.Record{}, domain.NewNotFound("test", id)
	}
	return rec, nil
}

func newGetter(ids ...string) *mockGetter {
	m := &mockGetter{records: make(map[string]record.Record)}
	for _, id := range ids {
		m.records[id] = record.New(record.F("id", id))
	}
	return m
}

func idOf(t *testing.T, rec record.Record) string {
	t.Helper()
	v, ok := rec.Get("id")
	if !ok {
		t.Fatal("record has no id field")
	}
	s, _ := v.AsString()
	return s
}

// --- Tests ---

func TestLen_DoesNotResolve(t *testing.T) {
	g := newGetter("a", "b")
	r := New(g, []string{"a", "b", "gone"}, 7)

	if r.Len() != 3 {
		t.Errorf("Len = %d", r.Len())
	}
	if r.Total() != 7 {
		t.Errorf("Total = %d", r.Total())
	}
	if len(g.calls) != 0 {
		t.Errorf("unexpected resolutions: %v", g.calls)
	}
}

func TestAt(t *testing.T) {
	r := New(newGetter("a", "b", "c"), []string{"a", "b", "c"}, 3)
	ctx := context.Background()

	tests := []struct {
		pos  int
		want string
	}{
		{0, "a"}, {2, "c"}, {-1, "c"}, {-3, "a"},
	}
	for _, tc := range tests {
		rec, err := r.At(ctx, tc.pos)
		if err != nil {
			t.Fatalf("At(%d): %v", tc.pos, err)
		}
		if got := idOf(t, rec); got != tc.want {
			t.Errorf("At(%d) = %q, want %q", tc.pos, got, tc.want)
		}
	}

	for _, pos := range []int{3, -4, 100} {
		if _, err := r.At(ctx, pos); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Errorf("At(%d): expected ErrIndexOutOfRange, got %v", pos, err)
		}
	}
}

func TestAt_VanishedHit(t *testing.T) {
	r := New(newGetter("a"), []string{"a", "gone"}, 2)
	_, err := r.At(context.Background(), 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSlice_Clamps(t *testing.T) {
	r := New(newGetter("a", "b", "c", "d"), []string{"a", "b", "c", "d"}, 4)
	ctx := context.Background()

	tests := []struct {
		lo, hi int
		want   string
	}{
		{0, 2, "[a b]"},
		{1, 100, "[b c d]"},
		{-2, 4, "[c d]"},
		{-100, 1, "[a]"},
		{3, 1, "[]"},
		{4, 10, "[]"},
	}
	for _, tc := range tests {
		recs, err := r.Slice(ctx, tc.lo, tc.hi)
		if err != nil {
			t.Fatalf("Slice(%d,%d): %v", tc.lo, tc.hi, err)
		}
		ids := make([]string, len(recs))
		for i, rec := range recs {
			ids[i] = idOf(t, rec)
		}
		if got := fmt.Sprint(ids); got != tc.want {
			t.Errorf("Slice(%d,%d) = %s, want %s", tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestSlice_PropagatesNotFound(t *testing.T) {
	r := New(newGetter("a"), []string{"a", "gone"}, 2)
	if _, err := r.Slice(context.Background(), 0, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAll_IteratesInOrderAndRestarts(t *testing.T) {
	g := newGetter("c", "a", "b")
	r := New(g, []string{"c", "a", "b"}, 3)
	ctx := context.Background()

	for round := range 2 {
		var got []string
		for rec, err := range r.All(ctx) {
			if err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			got = append(got, idOf(t, rec))
		}
		if fmt.Sprint(got) != "[c a b]" {
			t.Errorf("round %d: got %v", round, got)
		}
	}
	if len(g.calls) != 6 {
		t.Errorf("expected 6 resolutions, got %d", len(g.calls))
	}
}

func TestAll_StopsAfterError(t *testing.T) {
	g := newGetter("a", "c")
	r := New(g, []string{"a", "gone", "c"}, 3)

	steps := 0
	var lastErr error
	for _, err := range r.All(context.Background()) {
		steps++
		lastErr = err
	}
	if steps != 2 || !errors.Is(lastErr, domain.ErrNotFound) {
		t.Errorf("steps=%d err=%v", steps, lastErr)
	}
}

func TestAll_EarlyBreakIsLazy(t *testing.T) {
	g := newGetter("a", "b", "c")
	r := New(g, []string{"a", "b", "c"}, 3)

	for range r.All(context.Background()) {
		break
	}
	if len(g.calls) != 1 {
		t.Errorf("expected 1 resolution, got %v", g.calls)
	}
}

func TestCollect(t *testing.T) {
	r := New(newGetter("a", "b"), []string{"a", "b"}, 2)
	recs, err := r.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("len = %d", len(recs))
	}

	empty := New(newGetter(), nil, 0)
	recs, err = empty.Collect(context.Background())
	if err != nil || len(recs) != 0 {
		t.Errorf("empty collect: %v %v", recs, err)
	}
}
