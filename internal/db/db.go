package db

import (
	"context"
	"time"
)

// Engine is the search engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Engine interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashOp is a single pipelined hash mutation: a full replace, or a delete when Delete is set.
type HashOp struct {
	Key    string
	Fields map[string]string
	Delete bool
}

// HashStore provides hash-based document operations.
type HashStore interface {
	// ReplaceHash drops the previous fields of key and stores fields in their place.
	ReplaceHash(ctx context.Context, key string, fields map[string]string) error
	// Apply sends ops in order within a single round-trip.
	Apply(ctx context.Context, ops []HashOp) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *Query) (*SearchResult, error)
}
