package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Field is a single named value of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping of field names to values.
// The identity a record is stored under is not one of its fields.
type Record struct {
	fields []Field
}

// New creates a record from fields; a repeated name overwrites the earlier value in place.
func New(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// F is shorthand for building a Field from a plain Go value. It panics on
// unsupported types and is meant for literals and tests.
func F(name string, x any) Field {
	v, err := ValueOf(x)
	if err != nil {
		panic(fmt.Sprintf("record.F(%q): %v", name, err))
	}
	return Field{Name: name, Value: v}
}

// FromMap converts a plain map; fields are ordered by key.
func FromMap(m map[string]any) (Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := Record{fields: make([]Field, 0, len(keys))}
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", k, err)
		}
		r.fields = append(r.fields, Field{Name: k, Value: v})
	}
	return r, nil
}

// Set overwrites a field in place or appends it.
func (r *Record) Set(name string, v Value) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get returns a field value.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether the field is present.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes a field, keeping the order of the rest.
func (r *Record) Delete(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields = append(r.fields[:i:i], r.fields[i+1:]...)
			return
		}
	}
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in order.
func (r Record) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Clone returns an independent copy.
func (r Record) Clone() Record {
	if r.fields == nil {
		return Record{}
	}
	return Record{fields: r.Fields()}
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

// ToMap returns the plain Go representation.
func (r Record) ToMap() map[string]any {
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value.Any()
	}
	return m
}

// MarshalJSON encodes the record as an object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object; integral numbers become Int, others Float.
// Field order follows the sorted key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
