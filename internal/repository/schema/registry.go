package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/zelastic/internal/domain"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
)

// store is the consumer interface for index definitions (ISP).
type store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Keys(ctx context.Context, prefix []byte) ([][]byte, error)
}

// Registry holds the per-container set of index definitions.
// Definitions are append/overwrite-only.
type Registry struct {
	store store
}

// NewRegistry creates a schema registry.
func NewRegistry(s store) *Registry {
	return &Registry{store: s}
}

// Get returns the schema of a container. An unknown container has an empty schema.
func (r *Registry) Get(ctx context.Context, container string) (domschema.Schema, error) {
	prefix := domain.SchemaPrefix(container)
	fields, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return domschema.Schema{}, fmt.Errorf("list schema %s: %w", container, err)
	}

	defs := make([]domschema.Definition, 0, len(fields))
	for _, f := range fields {
		field := string(f)
		raw, err := r.store.Get(ctx, domain.SchemaKey(container, field))
		if err != nil {
			return domschema.Schema{}, fmt.Errorf("get schema %s.%s: %w", container, field, err)
		}
		t, err := domschema.ParseIndexType(strings.TrimSpace(string(raw)))
		if err != nil {
			return domschema.Schema{}, fmt.Errorf("schema %s.%s: %w", container, field, err)
		}
		defs = append(defs, domschema.Reconstruct(field, t))
	}
	return domschema.NewSchema(defs...), nil
}

// Set validates and stores a definition, overwriting any previous one for the field.
// Nothing is persisted when validation fails.
func (r *Registry) Set(ctx context.Context, container, field, indexType string) (domschema.Definition, error) {
	def, err := domschema.New(field, indexType)
	if err != nil {
		return domschema.Definition{}, err
	}
	if err := r.store.Set(ctx, domain.SchemaKey(container, field), []byte(def.Type())); err != nil {
		return domschema.Definition{}, fmt.Errorf("set schema %s.%s: %w", container, field, err)
	}
	return def, nil
}
