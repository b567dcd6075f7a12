package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the type carried by a Value.
type Kind uint8

const (
	// KindNone marks a node with no numeric value (labels, tanks, valves).
	KindNone Kind = iota
	KindNumber
	// KindStatus is a palette state name such as "green" or "white".
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNumber:
		return "number"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Value is a typed field value.
type Value struct {
	kind   Kind
	num    float64
	status string
}

// NumberValue creates a numeric value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// StatusValue creates a palette state value.
func StatusValue(s string) Value {
	return Value{kind: KindStatus, status: s}
}

func (v Value) Kind() Kind {
	return v.kind
}

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool {
	return v.kind == KindNumber
}

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsStatus returns the palette state held by v.
func (v Value) AsStatus() (string, bool) {
	return v.status, v.kind == KindStatus
}

// Float returns the number held by v, or 0.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Equal compares kind and payload. NaN is never equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindStatus:
		return v.status == o.status
	default:
		return true
	}
}

// finite reports whether a numeric value can be stored.
func (v Value) finite() bool {
	return v.kind != KindNumber || !(math.IsNaN(v.num) || math.IsInf(v.num, 0))
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindStatus:
		return v.status
	default:
		return "<none>"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindStatus:
		return json.Marshal(v.status)
	default:
		return []byte("null"), nil
	}
}
