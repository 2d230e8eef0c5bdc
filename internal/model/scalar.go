// Package model holds the data types shared across the ingestion engine:
// jobs, schemas, records, and the tagged scalar values a record's columns
// hold. None of these types know about HTTP or a particular backing store.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScalarKind tags the concrete type carried by a Scalar.
type ScalarKind int

const (
	KindNull ScalarKind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindTimestamp
)

func (k ScalarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Scalar is a nullable, dynamically-typed value held by one cell of a
// parsed row. Decimal is kept as its original decimal-string form so
// precision survives the parse -> persist -> read-back round trip
// without binary-float rounding.
type Scalar struct {
	Kind      ScalarKind
	Bool      bool
	Int       int64
	Float     float64
	Decimal   string
	Str       string
	Timestamp time.Time
}

// Null is the zero-value scalar.
var Null = Scalar{Kind: KindNull}

func NewBool(b bool) Scalar     { return Scalar{Kind: KindBool, Bool: b} }
func NewInt(i int64) Scalar     { return Scalar{Kind: KindInt, Int: i} }
func NewFloat(f float64) Scalar { return Scalar{Kind: KindFloat, Float: f} }
func NewDecimal(s string) Scalar {
	return Scalar{Kind: KindDecimal, Decimal: s}
}
func NewString(s string) Scalar { return Scalar{Kind: KindString, Str: s} }
func NewTimestamp(t time.Time) Scalar {
	return Scalar{Kind: KindTimestamp, Timestamp: t}
}

// IsNull reports whether the scalar carries no value.
func (s Scalar) IsNull() bool { return s.Kind == KindNull }

// String renders the scalar for display, logging, and substring search.
// It never returns an error; an unrecognized kind renders as "".
func (s Scalar) String() string {
	switch s.Kind {
	case KindNull:
		return ""
	case KindBool:
		if s.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", s.Int)
	case KindFloat:
		return fmt.Sprintf("%g", s.Float)
	case KindDecimal:
		return s.Decimal
	case KindString:
		return s.Str
	case KindTimestamp:
		return s.Timestamp.Format(time.RFC3339)
	default:
		return ""
	}
}

// jsonScalar is the wire shape persisted for a Scalar: a kind tag plus a
// single value field, so the JSON payload stored in Record.Data round-trips
// without losing the distinction between, say, an integer and a decimal.
type jsonScalar struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	js := jsonScalar{Kind: s.Kind.String()}
	switch s.Kind {
	case KindBool:
		js.Value = s.Bool
	case KindInt:
		js.Value = s.Int
	case KindFloat:
		js.Value = s.Float
	case KindDecimal:
		js.Value = s.Decimal
	case KindString:
		js.Value = s.Str
	case KindTimestamp:
		js.Value = s.Timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(js)
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var js jsonScalar
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	switch js.Kind {
	case "null", "":
		*s = Null
	case "bool":
		b, _ := js.Value.(bool)
		*s = NewBool(b)
	case "int":
		n, ok := js.Value.(float64)
		if !ok {
			return fmt.Errorf("model: scalar int value has wrong type %T", js.Value)
		}
		*s = NewInt(int64(n))
	case "float":
		n, ok := js.Value.(float64)
		if !ok {
			return fmt.Errorf("model: scalar float value has wrong type %T", js.Value)
		}
		*s = NewFloat(n)
	case "decimal":
		str, _ := js.Value.(string)
		*s = NewDecimal(str)
	case "string":
		str, _ := js.Value.(string)
		*s = NewString(str)
	case "timestamp":
		str, _ := js.Value.(string)
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return fmt.Errorf("model: scalar timestamp %q: %w", str, err)
		}
		*s = NewTimestamp(t)
	default:
		return fmt.Errorf("model: unknown scalar kind %q", js.Kind)
	}
	return nil
}

// RowData is the column-name-keyed payload of one parsed row.
type RowData map[string]Scalar
