package zelastic

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
)

const tagKey = "zelastic"

var timeType = reflect.TypeOf(time.Time{})

// schemaMeta holds parsed struct tag metadata, cached per TypedContainer.
type schemaMeta struct {
	typ   reflect.Type
	idIdx int // -1 if ids are always generated

	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
	index     IndexType // empty: stored, not indexed
}

// parseSchema reflects on T and extracts zelastic struct tag metadata.
//
// Tags: `zelastic:"name"` stores the field, `zelastic:"name,type"` also indexes it,
// `zelastic:",id"` marks the string identity field, `zelastic:"-"` skips it.
// An empty name defaults to the Go field name.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("zelastic: type %v is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}
	seen := make(map[string]bool)

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("zelastic: tagged field %s is unexported", f.Name)
		}
		if err := applyTag(meta, i, f, tag, seen); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// applyTag processes a single struct field's zelastic tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string, seen map[string]bool) error {
	name, modifier, _ := strings.Cut(tag, ",")

	if modifier == "id" {
		if meta.idIdx != -1 {
			return fmt.Errorf("zelastic: duplicate id tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("zelastic: id field %s must be a string", f.Name)
		}
		meta.idIdx = idx
		return nil
	}

	if name == "" {
		name = f.Name
	}
	if seen[name] {
		return fmt.Errorf("zelastic: duplicate field name %q", name)
	}
	if !supportedKind(f.Type) {
		return fmt.Errorf("zelastic: field %s has unsupported type %s", f.Name, f.Type)
	}

	m := fieldMapping{structIdx: idx, name: name}
	if modifier != "" {
		t, err := domschema.ParseIndexType(modifier)
		if err != nil {
			return fmt.Errorf("zelastic: field %s: %w", f.Name, err)
		}
		if err := domschema.ValidateFieldName(name); err != nil {
			return fmt.Errorf("zelastic: field %s: %w", f.Name, err)
		}
		m.index = t
	}
	seen[name] = true
	meta.fields = append(meta.fields, m)
	return nil
}

func supportedKind(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// indexes returns the fields to declare as searchable.
func (m *schemaMeta) indexes() []IndexInfo {
	var out []IndexInfo
	for _, f := range m.fields {
		if f.index != "" {
			out = append(out, IndexInfo{Field: f.name, Type: f.index})
		}
	}
	return out
}

// id returns the identity stored in item, or "" when none is tagged.
func (m *schemaMeta) id(item reflect.Value) string {
	if m.idIdx == -1 {
		return ""
	}
	return item.Field(m.idIdx).String()
}

// toRecord converts a typed struct to a Record using schema metadata.
func (m *schemaMeta) toRecord(item reflect.Value) Record {
	var rec Record
	for _, f := range m.fields {
		rec.Set(f.name, scalarValue(item.Field(f.structIdx)))
	}
	return rec
}

func scalarValue(v reflect.Value) Value {
	if v.Type() == timeType {
		return record.Time(v.Interface().(time.Time))
	}
	switch v.Kind() {
	case reflect.String:
		return record.String(v.String())
	case reflect.Bool:
		return record.Bool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return record.Int(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return record.Int(int64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return record.Float(v.Float())
	default:
		return record.Null()
	}
}

// fromRecord builds a typed struct from a stored record. Missing fields keep their zero value.
func (m *schemaMeta) fromRecord(id string, rec Record) (reflect.Value, error) {
	v := reflect.New(m.typ).Elem()
	if m.idIdx != -1 {
		v.Field(m.idIdx).SetString(id)
	}
	for _, f := range m.fields {
		val, ok := rec.Get(f.name)
		if !ok || val.IsNull() {
			continue
		}
		if err := setScalar(v.Field(f.structIdx), val); err != nil {
			return reflect.Value{}, fmt.Errorf("zelastic: field %q: %w", f.name, err)
		}
	}
	return v, nil
}

func setScalar(dst reflect.Value, val Value) error {
	if dst.Type() == timeType {
		t, ok := val.AsTime()
		if !ok {
			return mismatch(val, dst)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		s, ok := val.AsString()
		if !ok {
			return mismatch(val, dst)
		}
		dst.SetString(s)
	case reflect.Bool:
		b, ok := val.AsBool()
		if !ok {
			return mismatch(val, dst)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := val.AsInt()
		if !ok || dst.OverflowInt(i) {
			return mismatch(val, dst)
		}
		dst.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		i, ok := val.AsInt()
		if !ok || i < 0 || dst.OverflowUint(uint64(i)) {
			return mismatch(val, dst)
		}
		dst.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		f, ok := val.AsFloat()
		if !ok {
			return mismatch(val, dst)
		}
		dst.SetFloat(f)
	default:
		return mismatch(val, dst)
	}
	return nil
}

func mismatch(val Value, dst reflect.Value) error {
	return fmt.Errorf("cannot decode %s into %s", val.Kind(), dst.Type())
}
