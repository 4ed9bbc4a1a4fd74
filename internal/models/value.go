package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MissingValue is the number the met service reports when nothing was observed
const MissingValue = -99999

// ParseObservedValue maps a raw service value to (value, true), or to ("", false)
// when the raw value is the missing-value marker.
func ParseObservedValue(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == strconv.Itoa(MissingValue) {
		return "", false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == MissingValue {
		return "", false
	}
	return raw, true
}

// Kind is the type held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindFloat
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return "null"
	}
}

// Value is a single table cell
type Value struct {
	Kind  Kind
	Str   string
	Float float64
	Int   int64
}

func Null() Value                { return Value{Kind: KindNull} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String renders the value for text output; Null renders empty
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Float)
	case KindInt:
		return json.Marshal(v.Int)
	default:
		return []byte("null"), nil
	}
}
