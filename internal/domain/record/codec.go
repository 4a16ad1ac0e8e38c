package record

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Marshal encodes a record as an ordered BSON document.
func Marshal(r Record) ([]byte, error) {
	data, err := bson.Marshal(toD(r))
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a BSON document produced by Marshal.
func Unmarshal(data []byte) (Record, error) {
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return fromD(d)
}

func toD(r Record) bson.D {
	d := make(bson.D, 0, len(r.fields))
	for _, f := range r.fields {
		d = append(d, bson.E{Key: f.Name, Value: toBSON(f.Value)})
	}
	return d
}

func toBSON(v Value) any {
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
		return primitive.NewDateTimeFromTime(v.t)
	case KindList:
		a := make(bson.A, len(v.list))
		for i, e := range v.list {
			a[i] = toBSON(e)
		}
		return a
	case KindMap:
		if v.m == nil {
			return bson.D{}
		}
		return toD(*v.m)
	default:
		return nil
	}
}

func fromD(d bson.D) (Record, error) {
	r := Record{fields: make([]Field, 0, len(d))}
	for _, e := range d {
		v, err := fromBSON(e.Value)
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", e.Key, err)
		}
		r.fields = append(r.fields, Field{Name: e.Key, Value: v})
	}
	return r, nil
}

func fromBSON(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case primitive.DateTime:
		return Time(t.Time()), nil
	case bson.A:
		out := make([]Value, len(t))
		for i, e := range t {
			v, err := fromBSON(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return Value{kind: KindList, list: out}, nil
	case bson.D:
		r, err := fromD(t)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: &r}, nil
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := make(bson.D, 0, len(keys))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: t[k]})
		}
		return fromBSON(d)
	default:
		return Value{}, fmt.Errorf("unsupported bson type %T", x)
	}
}
