package search

import (
	"encoding/hex"
	"math"
	"strconv"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
)

// typeSpec describes how one index type is declared, encoded and matched.
type typeSpec struct {
	field  func(name string) db.IndexField
	encode func(v record.Value) (string, bool)
	match  db.PredicateKind
}

var typeTable = map[domschema.IndexType]typeSpec{
	domschema.Str: {
		field: func(name string) db.IndexField {
			return db.IndexField{
				Name: name, Type: db.IndexFieldTag, TagSeparator: TagSeparator,
				TagCaseSensitive: true, Sortable: true,
			}
		},
		encode: encodeStr,
		match:  db.PredicateTag,
	},
	domschema.Full: {
		field: func(name string) db.IndexField {
			return db.IndexField{Name: name, Type: db.IndexFieldText, Sortable: true}
		},
		encode: encodeScalar,
		match:  db.PredicateText,
	},
	domschema.Bool: {
		field: func(name string) db.IndexField {
			return db.IndexField{Name: name, Type: db.IndexFieldTag, TagSeparator: TagSeparator, Sortable: true}
		},
		encode: encodeBool,
		match:  db.PredicateTag,
	},
	domschema.Int: {
		field:  numericField,
		encode: encodeInt,
		match:  db.PredicateNumeric,
	},
	domschema.Float: {
		field:  numericField,
		encode: encodeFloat,
		match:  db.PredicateNumeric,
	},
	domschema.Datetime: {
		field:  numericField,
		encode: encodeDatetime,
		match:  db.PredicateNumeric,
	},
}

// Synthetic hash fields written next to the indexed record fields.
const (
	FieldKey       = "__key"
	FieldContainer = "__container"
)

// TagSeparator is declared on every TAG field; commas stay part of a value.
const TagSeparator = "\x1f"

func numericField(name string) db.IndexField {
	return db.IndexField{Name: name, Type: db.IndexFieldNumeric, Sortable: true}
}

func encodeScalar(v record.Value) (string, bool) {
	switch v.Kind() {
	case record.KindString:
		s, _ := v.AsString()
		return s, true
	case record.KindInt:
		return encodeInt(v)
	case record.KindFloat:
		return encodeFloat(v)
	case record.KindBool:
		return encodeBool(v)
	default:
		return "", false
	}
}

// encodeStr hex-encodes the scalar text. The engine splits and trims TAG values;
// hex keeps every byte significant and preserves byte order for sorting.
func encodeStr(v record.Value) (string, bool) {
	s, ok := encodeScalar(v)
	if !ok {
		return "", false
	}
	return hex.EncodeToString([]byte(s)), true
}

func decodeStr(s string) (string, bool) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func encodeBool(v record.Value) (string, bool) {
	switch v.Kind() {
	case record.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), true
	case record.KindString:
		s, _ := v.AsString()
		if s == "true" || s == "false" {
			return s, true
		}
	}
	return "", false
}

func encodeInt(v record.Value) (string, bool) {
	switch v.Kind() {
	case record.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10), true
	case record.KindFloat:
		f, _ := v.AsFloat()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
			return "", false
		}
		return strconv.FormatInt(int64(f), 10), true
	default:
		return "", false
	}
}

func encodeFloat(v record.Value) (string, bool) {
	f, ok := v.AsFloat()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func encodeDatetime(v record.Value) (string, bool) {
	switch v.Kind() {
	case record.KindTime:
		t, _ := v.AsTime()
		return strconv.FormatInt(t.UnixMilli(), 10), true
	case record.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10), true
	default:
		return "", false
	}
}

func parseEncodedNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64) //nolint:wrapcheck // caller maps to ErrInvalidFilter
}
