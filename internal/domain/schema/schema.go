package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/zelastic/internal/domain"
)

// IndexType is the search type tag of an indexed field.
type IndexType string

// Supported index type tags.
const (
	Int      IndexType = "int"
	Float    IndexType = "float"
	Str      IndexType = "str"
	Full     IndexType = "full"
	Datetime IndexType = "datetime"
	Bool     IndexType = "bool"
)

// ReservedPrefix marks synthetic fields maintained by the store itself.
const ReservedPrefix = "__"

var (
	fieldRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	knownTypes = map[IndexType]bool{
		Int: true, Float: true, Str: true, Full: true, Datetime: true, Bool: true,
	}
)

// ParseIndexType validates a type tag.
func ParseIndexType(s string) (IndexType, error) {
	t := IndexType(s)
	if !knownTypes[t] {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidIndexType, s)
	}
	return t, nil
}

// IsNumeric reports whether values of this type are compared as numbers.
func (t IndexType) IsNumeric() bool {
	return t == Int || t == Float || t == Datetime
}

// ValidateFieldName checks a record field name for indexing.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars, no "__" prefix.
func ValidateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: field name is required", domain.ErrInvalidName)
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: field name %q too long (max 64)", domain.ErrInvalidName, name)
	}
	if !fieldRegex.MatchString(name) {
		return fmt.Errorf("%w: field name %q must be alphanumeric with underscores and hyphens",
			domain.ErrInvalidName, name)
	}
	if strings.HasPrefix(name, ReservedPrefix) {
		return fmt.Errorf("%w: field name %q is reserved", domain.ErrInvalidName, name)
	}
	return nil
}

// Definition declares that a record field is projected into the search index.
type Definition struct {
	field     string
	indexType IndexType
}

// New validates and creates a Definition.
func New(field, indexType string) (Definition, error) {
	t, err := ParseIndexType(indexType)
	if err != nil {
		return Definition{}, err
	}
	if err := ValidateFieldName(field); err != nil {
		return Definition{}, err
	}
	return Definition{field: field, indexType: t}, nil
}

// Reconstruct creates a Definition without validation (storage hydration).
func Reconstruct(field string, t IndexType) Definition {
	return Definition{field: field, indexType: t}
}

// Field returns the record field name.
func (d Definition) Field() string { return d.field }

// Type returns the index type tag.
func (d Definition) Type() IndexType { return d.indexType }

// Schema is the set of index definitions of one container, ordered by field name.
type Schema struct {
	defs []Definition
}

// NewSchema builds a Schema; later definitions overwrite earlier ones for the same field.
func NewSchema(defs ...Definition) Schema {
	var s Schema
	for _, d := range defs {
		s = s.With(d)
	}
	return s
}

// With returns a copy of the schema with d added or overwriting the existing entry.
func (s Schema) With(d Definition) Schema {
	out := make([]Definition, 0, len(s.defs)+1)
	replaced := false
	for _, cur := range s.defs {
		if cur.field == d.field {
			out = append(out, d)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, d)
		sort.Slice(out, func(i, j int) bool { return out[i].field < out[j].field })
	}
	return Schema{defs: out}
}

// Lookup returns the definition for a field.
func (s Schema) Lookup(field string) (Definition, bool) {
	for _, d := range s.defs {
		if d.field == field {
			return d, true
		}
	}
	return Definition{}, false
}

// Definitions returns the definitions ordered by field name.
func (s Schema) Definitions() []Definition {
	out := make([]Definition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Len returns the number of indexed fields.
func (s Schema) Len() int { return len(s.defs) }

// IsEmpty reports whether no field is indexed.
func (s Schema) IsEmpty() bool { return len(s.defs) == 0 }
