package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/zelastic/internal/db/memengine"
	"github.com/kailas-cloud/zelastic/internal/db/pebblekv"
	containerrepo "github.com/kailas-cloud/zelastic/internal/repository/container"
	recordrepo "github.com/kailas-cloud/zelastic/internal/repository/record"
	schemarepo "github.com/kailas-cloud/zelastic/internal/repository/schema"
	"github.com/kailas-cloud/zelastic/internal/repository/search"
	healthuc "github.com/kailas-cloud/zelastic/internal/usecase/health"
	storeuc "github.com/kailas-cloud/zelastic/internal/usecase/store"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	kv, err := pebblekv.Open(pebblekv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	engine := memengine.New()
	schemas := schemarepo.NewRegistry(kv)
	adapter := search.New(engine, schemas, search.Options{}, nil)
	store := storeuc.New(containerrepo.New(kv), recordrepo.New(kv), schemas, adapter, nil)

	r := chi.NewRouter()
	NewServer(store, adapter, healthuc.New(kv, engine), nil).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func decodeError(t *testing.T, b []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode error %s: %v", b, err)
	}
	return e
}

func seedUsers(t *testing.T, srv *httptest.Server) {
	t.Helper()
	if code, b := do(t, srv, http.MethodPut, "/containers/users", nil); code != http.StatusOK {
		t.Fatalf("create container: %d %s", code, b)
	}
	for _, idx := range []IndexRequest{{Field: "name", Type: "str"}, {Field: "age", Type: "int"}} {
		if code, b := do(t, srv, http.MethodPost, "/containers/users/indexes", idx); code != http.StatusCreated {
			t.Fatalf("add index %s: %d %s", idx.Field, code, b)
		}
	}
	users := map[string]map[string]any{
		"alice": {"name": "alice", "age": 30},
		"bob":   {"name": "bob", "age": 25},
		"carol": {"name": "carol", "age": 41},
	}
	for id, rec := range users {
		if code, b := do(t, srv, http.MethodPost, "/containers/users/records?id="+id, rec); code != http.StatusCreated {
			t.Fatalf("insert %s: %d %s", id, code, b)
		}
	}
}

func TestContainerLifecycle(t *testing.T) {
	srv := newTestServer(t)
	seedUsers(t, srv)

	code, b := do(t, srv, http.MethodGet, "/containers/users/meta", nil)
	if code != http.StatusOK {
		t.Fatalf("meta: %d %s", code, b)
	}
	var meta ContainerResponse
	if err := json.Unmarshal(b, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Name != "users" || len(meta.Indexes) != 2 || !meta.Mapped {
		t.Errorf("meta = %+v", meta)
	}

	code, b = do(t, srv, http.MethodGet, "/containers", nil)
	if code != http.StatusOK || !bytes.Contains(b, []byte(`"users"`)) {
		t.Errorf("list: %d %s", code, b)
	}

	if code, b = do(t, srv, http.MethodDelete, "/containers/users", nil); code != http.StatusNoContent {
		t.Fatalf("drop: %d %s", code, b)
	}
	code, b = do(t, srv, http.MethodGet, "/containers/users/meta", nil)
	if code != http.StatusNotFound {
		t.Errorf("meta after drop: %d %s", code, b)
	}
}

func TestContainer_InvalidName(t *testing.T) {
	srv := newTestServer(t)

	code, b := do(t, srv, http.MethodPut, "/containers/bad.name", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d %s", code, b)
	}
	if e := decodeError(t, b); e.Code != CodeInvalidName {
		t.Errorf("code = %s", e.Code)
	}
}

func TestAddIndex_InvalidType(t *testing.T) {
	srv := newTestServer(t)

	code, b := do(t, srv, http.MethodPost, "/containers/users/indexes", IndexRequest{Field: "age", Type: "vector"})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d %s", code, b)
	}
	if e := decodeError(t, b); e.Code != CodeInvalidIndexType {
		t.Errorf("code = %s", e.Code)
	}
}

func TestRecords_CRUD(t *testing.T) {
	srv := newTestServer(t)
	seedUsers(t, srv)

	code, b := do(t, srv, http.MethodGet, "/containers/users/records/alice", nil)
	if code != http.StatusOK {
		t.Fatalf("get: %d %s", code, b)
	}
	if string(bytes.TrimSpace(b)) != `{"age":30,"name":"alice"}` {
		t.Errorf("get body = %s", b)
	}

	code, b = do(t, srv, http.MethodPost, "/containers/users/records?id=alice", map[string]any{"name": "x"})
	if code != http.StatusConflict {
		t.Errorf("duplicate insert: %d %s", code, b)
	}

	code, b = do(t, srv, http.MethodPut, "/containers/users/records/alice", map[string]any{"name": "alice", "age": 31})
	if code != http.StatusNoContent {
		t.Fatalf("update: %d %s", code, b)
	}
	code, b = do(t, srv, http.MethodPut, "/containers/users/records/nobody", map[string]any{"name": "x"})
	if code != http.StatusNotFound {
		t.Errorf("update missing: %d %s", code, b)
	}

	if code, b = do(t, srv, http.MethodDelete, "/containers/users/records/alice", nil); code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", code, b)
	}
	code, b = do(t, srv, http.MethodGet, "/containers/users/records/alice", nil)
	if code != http.StatusNotFound {
		t.Errorf("get after delete: %d %s", code, b)
	}
	if e := decodeError(t, b); e.Code != CodeNotFound {
		t.Errorf("code = %s", e.Code)
	}

	code, b = do(t, srv, http.MethodGet, "/containers/users/records", nil)
	if code != http.StatusOK || !bytes.Contains(b, []byte(`"total":2`)) {
		t.Errorf("list: %d %s", code, b)
	}
}

func TestInsert_GeneratedID(t *testing.T) {
	srv := newTestServer(t)

	code, b := do(t, srv, http.MethodPost, "/containers/notes/records", map[string]any{"text": "hi"})
	if code != http.StatusCreated {
		t.Fatalf("insert: %d %s", code, b)
	}
	var out map[string]string
	if err := json.Unmarshal(b, &out); err != nil || out["id"] == "" {
		t.Fatalf("id response %s: %v", b, err)
	}
	if code, b = do(t, srv, http.MethodGet, "/containers/notes/records/"+out["id"], nil); code != http.StatusOK {
		t.Errorf("get generated: %d %s", code, b)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	seedUsers(t, srv)

	gte := 26.0
	tests := []struct {
		name    string
		req     SearchRequest
		wantIDs []string
		total   int
	}{
		{"match all sorted by key", SearchRequest{}, []string{"alice", "bob", "carol"}, 3},
		{"exact int", SearchRequest{Filters: map[string]any{"age": 30}}, []string{"alice"}, 1},
		{"exact str", SearchRequest{Filters: map[string]any{"name": "bob"}}, []string{"bob"}, 1},
		{"range", SearchRequest{Ranges: map[string]RangeRequest{"age": {GTE: &gte}}}, []string{"alice", "carol"}, 2},
		{"sort by age", SearchRequest{Sort: "age"}, []string{"bob", "alice", "carol"}, 3},
		{"paged", SearchRequest{Offset: 1, Limit: 1}, []string{"bob"}, 3},
		{"offset past end", SearchRequest{Offset: 10}, nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, b := do(t, srv, http.MethodPost, "/containers/users/search", tt.req)
			if code != http.StatusOK {
				t.Fatalf("search: %d %s", code, b)
			}
			var resp SearchResponse
			if err := json.Unmarshal(b, &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Total != tt.total {
				t.Errorf("total = %d, want %d", resp.Total, tt.total)
			}
			if len(resp.Items) != len(tt.wantIDs) {
				t.Fatalf("items = %s", b)
			}
			for i, it := range resp.Items {
				if it.ID != tt.wantIDs[i] {
					t.Errorf("item %d = %s, want %s", i, it.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestSearch_InvalidFilter(t *testing.T) {
	srv := newTestServer(t)
	seedUsers(t, srv)

	for name, req := range map[string]SearchRequest{
		"unregistered field":  {Filters: map[string]any{"email": "x"}},
		"unregistered sort":   {Sort: "email"},
		"empty match":         {Filters: map[string]any{"name": ""}},
		"range without bound": {Ranges: map[string]RangeRequest{"age": {}}},
	} {
		t.Run(name, func(t *testing.T) {
			code, b := do(t, srv, http.MethodPost, "/containers/users/search", req)
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d %s", code, b)
			}
			if e := decodeError(t, b); e.Code != CodeInvalidFilter {
				t.Errorf("code = %s", e.Code)
			}
		})
	}
}

func TestSearch_BadBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		srv.URL+"/containers/users/search", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestFlush(t *testing.T) {
	srv := newTestServer(t)
	if code, b := do(t, srv, http.MethodPost, "/flush", nil); code != http.StatusNoContent {
		t.Errorf("flush: %d %s", code, b)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	code, b := do(t, srv, http.MethodGet, "/health", nil)
	if code != http.StatusOK || !bytes.Contains(b, []byte(`"status":"ok"`)) {
		t.Errorf("health: %d %s", code, b)
	}
	if !bytes.Contains(b, []byte(`"build":{"version":"dev"`)) {
		t.Errorf("health without build info: %s", b)
	}
}

func TestHealthCheck_Degraded(t *testing.T) {
	kv, err := pebblekv.Open(pebblekv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	s := NewServer(nil, nil, healthuc.New(kv, failingPinger{}), nil)
	rr := httptest.NewRecorder()
	s.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"degraded"`)) {
		t.Errorf("body = %s", rr.Body.String())
	}

	s = NewServer(nil, nil, healthuc.New(failingPinger{}, nil), nil)
	rr = httptest.NewRecorder()
	s.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", rr.Code)
	}
}

func TestGetDocument(t *testing.T) {
	srv := newTestServer(t)
	seedUsers(t, srv)

	rec := map[string]any{"name": " d,e ", "age": 52, "note": "unindexed"}
	if code, b := do(t, srv, http.MethodPost, "/containers/users/records?id=dora", rec); code != http.StatusCreated {
		t.Fatalf("insert: %d %s", code, b)
	}

	code, b := do(t, srv, http.MethodGet, "/containers/users/records/dora/document", nil)
	if code != http.StatusOK {
		t.Fatalf("document: %d %s", code, b)
	}
	var doc map[string]string
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc["name"] != " d,e " || doc["age"] != "52" || doc["__key"] != "dora" {
		t.Errorf("document = %v", doc)
	}
	if _, ok := doc["note"]; ok {
		t.Errorf("unindexed field projected: %v", doc)
	}

	code, b = do(t, srv, http.MethodGet, "/containers/users/records/nobody/document", nil)
	if code != http.StatusNotFound || decodeError(t, b).Code != CodeNotFound {
		t.Errorf("absent document: %d %s", code, b)
	}
	code, b = do(t, srv, http.MethodGet, "/containers/ghost/records/dora/document", nil)
	if code != http.StatusNotFound {
		t.Errorf("absent container: %d %s", code, b)
	}
}
