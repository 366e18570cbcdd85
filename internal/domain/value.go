package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Arity describes the value shape an operator requires.
type Arity string

const (
	ArityNone   Arity = "none"
	ArityScalar Arity = "scalar"
	ArityPair   Arity = "pair"
	ArityList   Arity = "list"
)

// ScalarKind tags the concrete type held by a Scalar.
type ScalarKind string

const (
	ScalarString ScalarKind = "string"
	ScalarNumber ScalarKind = "number"
	ScalarBool   ScalarKind = "bool"
	ScalarTime   ScalarKind = "time"
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000000000",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// ParseTime parses a timestamp string using the accepted layouts.
func ParseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", raw)
}

// Scalar is a single typed criterion value.
type Scalar struct {
	Kind ScalarKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

// StringScalar wraps a string value.
func StringScalar(s string) Scalar { return Scalar{Kind: ScalarString, Str: s} }

// NumberScalar wraps a numeric value.
func NumberScalar(n float64) Scalar { return Scalar{Kind: ScalarNumber, Num: n} }

// BoolScalar wraps a boolean value.
func BoolScalar(b bool) Scalar { return Scalar{Kind: ScalarBool, Bool: b} }

// TimeScalar wraps a timestamp value.
func TimeScalar(t time.Time) Scalar { return Scalar{Kind: ScalarTime, Time: t} }

// Float returns the scalar as a float64. Numeric strings are accepted so
// definitions produced by form inputs keep working.
func (s Scalar) Float() (float64, bool) {
	switch s.Kind {
	case ScalarNumber:
		return s.Num, true
	case ScalarString:
		f, err := strconv.ParseFloat(s.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsTime returns the scalar as a timestamp, parsing string scalars lazily.
func (s Scalar) AsTime() (time.Time, bool) {
	switch s.Kind {
	case ScalarTime:
		return s.Time, true
	case ScalarString:
		t, err := ParseTime(s.Str)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// Text returns the scalar rendered as a string.
func (s Scalar) Text() string {
	switch s.Kind {
	case ScalarString:
		return s.Str
	case ScalarNumber:
		return strconv.FormatFloat(s.Num, 'f', -1, 64)
	case ScalarBool:
		return strconv.FormatBool(s.Bool)
	case ScalarTime:
		return s.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// MarshalJSON renders the scalar as its underlying JSON value.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ScalarString:
		return json.Marshal(s.Str)
	case ScalarNumber:
		return json.Marshal(s.Num)
	case ScalarBool:
		return json.Marshal(s.Bool)
	case ScalarTime:
		return json.Marshal(s.Time.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts string, number and boolean JSON values. Timestamps
// arrive as strings and are parsed when an operator needs them.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*s = StringScalar(v)
	case float64:
		*s = NumberScalar(v)
	case bool:
		*s = BoolScalar(v)
	case nil:
		*s = Scalar{}
	default:
		return fmt.Errorf("unsupported scalar value %T", raw)
	}
	return nil
}

// ValueKind tags the shape of a criterion value.
type ValueKind string

const (
	ValueNone   ValueKind = "none"
	ValueScalar ValueKind = "scalar"
	ValuePair   ValueKind = "pair"
	ValueList   ValueKind = "list"
)

// Value is the tagged union of criterion value shapes keyed by operator arity.
// JSON arrays decode as lists; Coerce narrows a two-element list to a pair when
// the operator demands one.
type Value struct {
	Kind   ValueKind
	Scalar Scalar
	Low    Scalar
	High   Scalar
	Items  []Scalar
}

// NoValue returns the empty value used by arity-none operators.
func NoValue() Value { return Value{Kind: ValueNone} }

// ScalarValue wraps a single scalar.
func ScalarValue(s Scalar) Value { return Value{Kind: ValueScalar, Scalar: s} }

// PairValue wraps a low/high bound pair.
func PairValue(low, high Scalar) Value { return Value{Kind: ValuePair, Low: low, High: high} }

// ListValue wraps an ordered list of scalars.
func ListValue(items ...Scalar) Value {
	copied := make([]Scalar, len(items))
	copy(copied, items)
	return Value{Kind: ValueList, Items: copied}
}

// IsZero reports whether no value was supplied.
func (v Value) IsZero() bool { return v.Kind == "" || v.Kind == ValueNone }

// Coerce reshapes the value to the given arity. Operators with arity none
// ignore any supplied value. A two-element list satisfies arity pair so that
// JSON definitions, which cannot distinguish the two, keep round-tripping.
func (v Value) Coerce(arity Arity) (Value, error) {
	switch arity {
	case ArityNone:
		return NoValue(), nil
	case ArityScalar:
		if v.Kind == ValueScalar {
			return v, nil
		}
		return Value{}, fmt.Errorf("operator requires a single value, got %s", v.kindLabel())
	case ArityPair:
		switch v.Kind {
		case ValuePair:
			return v, nil
		case ValueList:
			if len(v.Items) == 2 {
				return PairValue(v.Items[0], v.Items[1]), nil
			}
			return Value{}, fmt.Errorf("operator requires exactly two values, got %d", len(v.Items))
		default:
			return Value{}, fmt.Errorf("operator requires a [low, high] pair, got %s", v.kindLabel())
		}
	case ArityList:
		switch v.Kind {
		case ValueList:
			return v, nil
		case ValuePair:
			return ListValue(v.Low, v.High), nil
		default:
			return Value{}, fmt.Errorf("operator requires a list of values, got %s", v.kindLabel())
		}
	default:
		return Value{}, fmt.Errorf("unknown arity %q", arity)
	}
}

func (v Value) kindLabel() string {
	if v.IsZero() {
		return "no value"
	}
	return string(v.Kind)
}

// MarshalJSON renders none as null, scalars inline and pairs/lists as arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueScalar:
		return json.Marshal(v.Scalar)
	case ValuePair:
		return json.Marshal([]Scalar{v.Low, v.High})
	case ValueList:
		return json.Marshal(v.Items)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a scalar or an array of scalars.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.(type) {
	case nil:
		*v = NoValue()
		return nil
	case []any:
		var items []Scalar
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = Value{Kind: ValueList, Items: items}
		return nil
	default:
		var s Scalar
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ScalarValue(s)
		return nil
	}
}
