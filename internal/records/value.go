// Package records holds the in-memory tabular model shared by the reader,
// transformer and writer: a fixed list of columns and rows of nullable
// scalar values.
package records

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a nullable scalar. The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

func Null() Value               { return Value{} }
func Text(s string) Value       { return Value{kind: KindText, s: s} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Time(t time.Time) Value    { return Value{kind: KindTime, t: t} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Str() string     { return v.s }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Time() time.Time { return v.t }

// Driver returns the value as a database/sql argument: nil, string, int64,
// float64 or time.Time.
func (v Value) Driver() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil
		}
		return v.f
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// String renders the value for previews and logs.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return strconv.Quote(v.s)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return "null"
	}
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// GoString makes test failure output readable.
func (v Value) GoString() string {
	return fmt.Sprintf("records.%s(%s)", v.kind, v.String())
}
