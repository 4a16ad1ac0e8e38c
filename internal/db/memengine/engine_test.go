package memengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/kailas-cloud/zelastic/internal/db"
)

func testIndex(t *testing.T) *db.IndexDefinition {
	t.Helper()
	return mustBuild(t, db.NewIndex("t:users:idx").
		Prefix("t:users:").
		TagWithOpts("__key", "", true, true).
		TagWithOpts("name", "", true, true).
		Tag("color").
		Text("bio", true).
		Numeric("age", true))
}

func seed(t *testing.T) *Engine {
	t.Helper()
	e := New()
	ctx := context.Background()
	if err := e.CreateIndex(ctx, testIndex(t)); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	docs := []db.HashOp{
		{Key: "t:users:a", Fields: map[string]string{"__key": "a", "name": "Ann", "color": "Red", "bio": "Likes Go and tea", "age": "30"}},
		{Key: "t:users:b", Fields: map[string]string{"__key": "b", "name": "bob", "color": "blue", "bio": "rust", "age": "25"}},
		{Key: "t:users:c", Fields: map[string]string{"__key": "c", "name": "Cid", "age": "41.5"}},
		{Key: "t:other:x", Fields: map[string]string{"__key": "x", "name": "Ann"}},
	}
	if err := e.Apply(ctx, docs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return e
}

func keys(res *db.SearchResult) string {
	out := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, e.Key)
	}
	return fmt.Sprint(out)
}

func TestCreateIndex_Exists(t *testing.T) {
	e := New()
	ctx := context.Background()
	if err := e.CreateIndex(ctx, testIndex(t)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := e.CreateIndex(ctx, testIndex(t))
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestDropIndex_KeepsDocuments(t *testing.T) {
	e := seed(t)
	ctx := context.Background()

	if err := e.DropIndex(ctx, "t:users:idx"); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if ok, _ := e.IndexExists(ctx, "t:users:idx"); ok {
		t.Fatal("index still exists")
	}
	if e.Len() != 4 {
		t.Errorf("documents dropped: %d left", e.Len())
	}
	if err := e.DropIndex(ctx, "t:users:idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
	if _, err := e.Search(ctx, &db.Query{IndexName: "t:users:idx", Limit: 10}); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound from Search, got %v", err)
	}
}

func TestHashes_ReplaceAndDelete(t *testing.T) {
	e := seed(t)
	ctx := context.Background()

	if err := e.ReplaceHash(ctx, "t:users:a", map[string]string{"__key": "a"}); err != nil {
		t.Fatalf("ReplaceHash: %v", err)
	}
	got, err := e.HGetAll(ctx, "t:users:a")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(got) != 1 || got["__key"] != "a" {
		t.Errorf("hash = %v", got)
	}

	if err := e.Del(ctx, "t:users:a", "missing"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := e.HGetAll(ctx, "t:users:a"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSearch_Predicates(t *testing.T) {
	e := seed(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    db.Query
		want string
	}{
		{"match all scoped by prefix", db.Query{}, "[t:users:a t:users:b t:users:c]"},
		{"case sensitive tag", db.Query{Must: []db.Predicate{{Field: "name", Kind: db.PredicateTag, Value: "ann"}}}, "[]"},
		{"exact tag", db.Query{Must: []db.Predicate{{Field: "name", Kind: db.PredicateTag, Value: "Ann"}}}, "[t:users:a]"},
		{"case insensitive tag", db.Query{Must: []db.Predicate{{Field: "color", Kind: db.PredicateTag, Value: "red"}}}, "[t:users:a]"},
		{"text terms", db.Query{Must: []db.Predicate{{Field: "bio", Kind: db.PredicateText, Value: "go TEA"}}}, "[t:users:a]"},
		{"text missing term", db.Query{Must: []db.Predicate{{Field: "bio", Kind: db.PredicateText, Value: "go coffee"}}}, "[]"},
		{"numeric exact", db.Query{Must: []db.Predicate{{Field: "age", Kind: db.PredicateNumeric, Min: 25, Max: 25}}}, "[t:users:b]"},
		{"numeric open range", db.Query{Must: []db.Predicate{{Field: "age", Kind: db.PredicateNumeric, Min: 30, MinExclusive: true, Max: math.Inf(1)}}}, "[t:users:c]"},
		{"should", db.Query{Should: []db.Predicate{
			{Field: "name", Kind: db.PredicateTag, Value: "bob"},
			{Field: "name", Kind: db.PredicateTag, Value: "Cid"},
		}}, "[t:users:b t:users:c]"},
		{"must not", db.Query{MustNot: []db.Predicate{{Field: "name", Kind: db.PredicateTag, Value: "bob"}}}, "[t:users:a t:users:c]"},
		{"undeclared field", db.Query{Must: []db.Predicate{{Field: "nope", Kind: db.PredicateTag, Value: "x"}}}, "[]"},
		{"kind mismatch", db.Query{Must: []db.Predicate{{Field: "age", Kind: db.PredicateTag, Value: "30"}}}, "[]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.q
			q.IndexName = "t:users:idx"
			q.SortBy = "__key"
			q.Limit = 10
			res, err := e.Search(ctx, &q)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := keys(res); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSearch_SortPageAndReturn(t *testing.T) {
	e := seed(t)
	ctx := context.Background()

	res, err := e.Search(ctx, &db.Query{
		IndexName:    "t:users:idx",
		SortBy:       "age",
		SortDesc:     true,
		Offset:       1,
		Limit:        1,
		ReturnFields: []string{"__key"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("total = %d", res.Total)
	}
	if len(res.Entries) != 1 || res.Entries[0].Fields["__key"] != "a" {
		t.Errorf("entries = %+v", res.Entries)
	}

	res, err = e.Search(ctx, &db.Query{IndexName: "t:users:idx", SortBy: "color", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// "Red" < "blue" bytewise; c has no color and sorts last
	if got := keys(res); got != "[t:users:a t:users:b t:users:c]" {
		t.Errorf("got %s", got)
	}

	res, err = e.Search(ctx, &db.Query{IndexName: "t:users:idx", Offset: 5, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 3 || len(res.Entries) != 0 {
		t.Errorf("past the end: %+v", res)
	}
}

func mustBuild(t *testing.T, b *db.IndexBuilder) *db.IndexDefinition {
	t.Helper()
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return def
}

func TestSearch_TagSplitsOnDeclaredSeparatorOnly(t *testing.T) {
	e := New()
	ctx := context.Background()
	def := mustBuild(t, db.NewIndex("t:idx").
		Prefix("t:").
		Tag("plain").
		TagWithOpts("multi", "|", true, false))
	if err := e.CreateIndex(ctx, def); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := e.ReplaceHash(ctx, "t:a", map[string]string{"plain": "x,y", "multi": "p|q"}); err != nil {
		t.Fatalf("ReplaceHash: %v", err)
	}

	tests := []struct {
		field, value string
		want         string
	}{
		{"plain", "x,y", "[t:a]"},
		{"plain", "x", "[]"},
		{"multi", "q", "[t:a]"},
		{"multi", "p|q", "[]"},
	}
	for _, tc := range tests {
		q := &db.Query{IndexName: "t:idx", Limit: 10,
			Must: []db.Predicate{{Field: tc.field, Kind: db.PredicateTag, Value: tc.value}}}
		res, err := e.Search(ctx, q)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if got := keys(res); got != tc.want {
			t.Errorf("%s == %q: %s, want %s", tc.field, tc.value, got, tc.want)
		}
	}
}
