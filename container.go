package zelastic

import (
	"context"

	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/usecase/container"
	"github.com/kailas-cloud/zelastic/internal/usecase/result"
)

// Record is an ordered mapping of field names to values.
type Record = record.Record

// Field is a single named record value.
type Field = record.Field

// Value is a tagged record field value.
type Value = record.Value

// Results is a lazily resolved, ordered list of search hits.
type Results = result.Resolver

// IndexType is the search type of an indexed field.
type IndexType = domschema.IndexType

// Supported index types.
const (
	Int      = domschema.Int
	Float    = domschema.Float
	Str      = domschema.Str
	Full     = domschema.Full
	Datetime = domschema.Datetime
	Bool     = domschema.Bool
)

// IndexInfo describes an indexed field.
type IndexInfo struct {
	Field string
	Type  IndexType
}

// F builds a Field from a plain Go value. It panics on unsupported types.
func F(name string, x any) Field { return record.F(name, x) }

// NewRecord builds a Record from fields.
func NewRecord(fields ...Field) Record { return record.New(fields...) }

// RecordFromMap converts a plain map; fields are ordered by key.
func RecordFromMap(m map[string]any) (Record, error) { return record.FromMap(m) }

// Container is a named collection of records keyed by identity.
type Container struct {
	c *container.Container
}

// Name returns the container name.
func (c *Container) Name() string { return c.c.Name() }

// Insert stores rec under id, or under a generated id when id is empty.
// A present id yields ErrDuplicateKey.
func (c *Container) Insert(ctx context.Context, rec Record, id string) (string, error) {
	return c.c.Insert(ctx, rec, id)
}

// Update replaces the record stored under id.
func (c *Container) Update(ctx context.Context, rec Record, id string) error {
	return c.c.Update(ctx, rec, id)
}

// Delete removes the record stored under id.
func (c *Container) Delete(ctx context.Context, id string) error {
	return c.c.Delete(ctx, id)
}

// Get returns the record stored under id.
func (c *Container) Get(ctx context.Context, id string) (Record, error) {
	return c.c.Get(ctx, id)
}

// Contains reports whether id is present.
func (c *Container) Contains(ctx context.Context, id string) (bool, error) {
	return c.c.Contains(ctx, id)
}

// Size returns the number of records.
func (c *Container) Size(ctx context.Context) (int, error) {
	return c.c.Size(ctx)
}

// Keys returns every record id in ascending order.
func (c *Container) Keys(ctx context.Context) ([]string, error) {
	return c.c.Keys(ctx)
}

// AddIndex declares field as searchable with the given type. Records written
// before the call are not re-indexed.
func (c *Container) AddIndex(ctx context.Context, field string, t IndexType) error {
	return c.c.AddIndex(ctx, field, string(t))
}

// Indexes returns the container's index definitions.
func (c *Container) Indexes(ctx context.Context) ([]IndexInfo, error) {
	sch, err := c.c.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return toIndexInfo(sch), nil
}

// Search returns records whose fields equal every value in fields, ordered by
// sortKey (record id when empty).
func (c *Container) Search(ctx context.Context, fields map[string]any, sortKey string) (*Results, error) {
	return c.c.SearchFields(ctx, fields, sortKey)
}

func toIndexInfo(sch domschema.Schema) []IndexInfo {
	defs := sch.Definitions()
	out := make([]IndexInfo, len(defs))
	for i, d := range defs {
		out[i] = IndexInfo{Field: d.Field(), Type: d.Type()}
	}
	return out
}
