package record

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// Kind is the dynamic type of a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindTime
	KindList
	KindMap
)

var kindNames = [...]string{"null", "int", "float", "string", "bool", "time", "list", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is a tagged field value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
	list []Value
	m    *Record
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int wraps an integer.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float wraps a float.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String wraps a string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Time wraps a timestamp, normalized to UTC with millisecond precision.
func Time(v time.Time) Value {
	return Value{kind: KindTime, t: v.UTC().Truncate(time.Millisecond)}
}

// List wraps an ordered list of values.
func List(vs ...Value) Value {
	out := make([]Value, len(vs))
	copy(out, vs)
	return Value{kind: KindList, list: out}
}

// Map wraps a nested record.
func Map(r Record) Value {
	c := r.Clone()
	return Value{kind: KindMap, m: &c}
}

// Kind returns the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload; integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the timestamp payload.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// AsList returns a copy of the list payload.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, true
}

// AsMap returns the nested record payload.
func (v Value) AsMap() (Record, bool) {
	if v.kind != KindMap || v.m == nil {
		return Record{}, false
	}
	return v.m.Clone(), true
}

// Any returns the plain Go representation: nil, int64, float64, string, bool,
// time.Time, []any or map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		if v.m == nil {
			return map[string]any{}
		}
		return v.m.ToMap()
	default:
		return nil
	}
}

// Equal reports deep equality. Int and Float never compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		var a, b Record
		if v.m != nil {
			a = *v.m
		}
		if o.m != nil {
			b = *o.m
		}
		return a.Equal(b)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindNull:
		return "null"
	default:
		return fmt.Sprint(v.Any())
	}
}

// MarshalJSON encodes the value; timestamps use RFC 3339, maps keep field order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return v.m.MarshalJSON()
	default:
		return json.Marshal(v.Any())
	}
}

// ValueOf converts a plain Go value into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case Record:
		return Map(t), nil
	case *Record:
		if t == nil {
			return Null(), nil
		}
		return Map(*t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case time.Time:
		return Time(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Float(f), nil
	case []any:
		return listOf(len(t), func(i int) any { return t[i] })
	case map[string]any:
		r, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Map(r), nil
	}
	return valueOfReflect(reflect.ValueOf(x))
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func listOf(n int, at func(int) any) (Value, error) {
	out := make([]Value, n)
	for i := range n {
		v, err := ValueOf(at(i))
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return Value{kind: KindList, list: out}, nil
}

func valueOfReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return listOf(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		var r Record
		for _, k := range keys {
			v, err := ValueOf(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			r.Set(k, v)
		}
		return Map(r), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %s", rv.Type())
	}
}
