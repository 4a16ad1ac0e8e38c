package container

import (
	"context"

	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/domain/search/filter"
	"github.com/kailas-cloud/zelastic/internal/repository/search"
)

// Records is the primary, authoritative record storage.
type Records interface {
	Get(ctx context.Context, container, id string) (record.Record, error)
	Exists(ctx context.Context, container, id string) (bool, error)
	Put(ctx context.Context, container, id string, rec record.Record) error
	Delete(ctx context.Context, container, id string) error
	IDs(ctx context.Context, container string) ([]string, error)
	Count(ctx context.Context, container string) (int, error)
}

// SchemaRegistry stores the index definitions of containers.
type SchemaRegistry interface {
	Get(ctx context.Context, container string) (domschema.Schema, error)
	Set(ctx context.Context, container, field, indexType string) (domschema.Definition, error)
}

// SearchIndex mirrors records into the search engine and queries it.
type SearchIndex interface {
	EnsureMapping(ctx context.Context, container string) error
	Upsert(ctx context.Context, container string, rec record.Record, id string) error
	Remove(ctx context.Context, container, id string) error
	Query(ctx context.Context, container string, expr filter.Expression, sortKey string) (*search.Hits, error)
}

// IDGenerator produces fresh record identities.
type IDGenerator func() string
