// Package memengine is an in-process db.Engine for embedded use and tests.
// It keeps hashes in an ordered tree and evaluates query predicates against the
// fields declared by each index, following FT.SEARCH semantics for TAG, TEXT and
// NUMERIC fields.
package memengine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/kailas-cloud/zelastic/internal/db"
)

// Compile-time check: Engine implements db.Engine.
var _ db.Engine = (*Engine)(nil)

type hashItem struct {
	key    string
	fields map[string]string
}

func lessHash(a, b hashItem) bool { return a.key < b.key }

// Engine is a thread-safe in-memory search engine.
type Engine struct {
	mu      sync.RWMutex
	hashes  *btree.BTreeG[hashItem]
	indexes map[string]*db.IndexDefinition
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		hashes:  btree.NewG[hashItem](32, lessHash),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds.
func (e *Engine) Ping(_ context.Context) error { return nil }

// WaitForReady returns immediately.
func (e *Engine) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Close is a no-op.
func (e *Engine) Close() {}

// ReplaceHash drops the previous fields of key and stores fields in their place.
func (e *Engine) ReplaceHash(_ context.Context, key string, fields map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.put(key, fields)
	return nil
}

// Apply applies ops in order.
func (e *Engine) Apply(_ context.Context, ops []db.HashOp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			e.hashes.Delete(hashItem{key: op.Key})
			continue
		}
		e.put(op.Key, op.Fields)
	}
	return nil
}

func (e *Engine) put(key string, fields map[string]string) {
	if len(fields) == 0 {
		e.hashes.Delete(hashItem{key: key})
		return
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	e.hashes.ReplaceOrInsert(hashItem{key: key, fields: cp})
}

// HGetAll returns a copy of the hash at key, or db.ErrKeyNotFound.
func (e *Engine) HGetAll(_ context.Context, key string) (map[string]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item, ok := e.hashes.Get(hashItem{key: key})
	if !ok {
		return nil, &db.Error{Op: db.OpHGetAll, Err: db.ErrKeyNotFound}
	}
	cp := make(map[string]string, len(item.fields))
	for k, v := range item.fields {
		cp[k] = v
	}
	return cp, nil
}

// Del removes keys; missing keys are ignored.
func (e *Engine) Del(_ context.Context, keys ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, k := range keys {
		e.hashes.Delete(hashItem{key: k})
	}
	return nil
}

// Len returns the number of stored hashes.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hashes.Len()
}

// CreateIndex registers def; an existing name yields db.ErrIndexExists.
func (e *Engine) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indexes[def.Name]; ok {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
	}
	cp := *def
	cp.Prefixes = append([]string(nil), def.Prefixes...)
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	e.indexes[def.Name] = &cp
	return nil
}

// DropIndex removes the index definition and keeps its documents.
func (e *Engine) DropIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indexes[name]; !ok {
		return &db.Error{Op: db.OpDropIndex, Err: db.ErrIndexNotFound}
	}
	delete(e.indexes, name)
	return nil
}

// IndexExists reports whether name is registered.
func (e *Engine) IndexExists(_ context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.indexes[name]
	return ok, nil
}

// Index returns a copy of the named index definition.
func (e *Engine) Index(name string) (db.IndexDefinition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.indexes[name]
	if !ok {
		return db.IndexDefinition{}, false
	}
	return *def, true
}

// scan visits every hash under any of the index prefixes.
func (e *Engine) scan(def *db.IndexDefinition, fn func(hashItem)) {
	for _, p := range def.Prefixes {
		e.hashes.AscendGreaterOrEqual(hashItem{key: p}, func(it hashItem) bool {
			if !strings.HasPrefix(it.key, p) {
				return false
			}
			fn(it)
			return true
		})
	}
}
