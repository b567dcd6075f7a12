package model

import (
	"fmt"
	"maps"
	"slices"
)

// FieldKind selects which part of a node a Field addresses.
type FieldKind uint8

const (
	FieldKindValue FieldKind = iota
	FieldKindSubValue
	FieldKindStatus
)

// Field addresses one mutable field of a node.
type Field struct {
	Kind  FieldKind
	Index int
}

// FieldValue is the node's primary value.
var FieldValue = Field{Kind: FieldKindValue}

// SubValueField addresses the i-th monitor row.
func SubValueField(i int) Field {
	return Field{Kind: FieldKindSubValue, Index: i}
}

// StatusField addresses the i-th status indicator.
func StatusField(i int) Field {
	return Field{Kind: FieldKindStatus, Index: i}
}

// String renders the field as a data path: value, values[1].value, statuses[0].fill.
func (f Field) String() string {
	switch f.Kind {
	case FieldKindValue:
		return "value"
	case FieldKindSubValue:
		return fmt.Sprintf("values[%d].value", f.Index)
	case FieldKindStatus:
		return fmt.Sprintf("statuses[%d].fill", f.Index)
	default:
		return fmt.Sprintf("field(%d,%d)", f.Kind, f.Index)
	}
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Port is a named connection point. Meta is opaque to the model.
type Port struct {
	ID   string
	Meta map[string]any
}

// SubValue is one labelled row of a monitor panel.
type SubValue struct {
	Label string
	Unit  string
	Value float64
}

// Node is a bounded entity in the graph. Value is KindNone for purely
// structural nodes; Min <= Value <= Max holds whenever it is a number.
type Node struct {
	ID        string
	Category  string
	Value     Value
	Min       float64
	Max       float64
	Unit      string
	Editable  bool
	Ports     []Port
	SubValues []SubValue
	Statuses  []string
	Meta      map[string]any
}

// Edge is a directed link between two nodes.
type Edge struct {
	ID       string
	From     string
	To       string
	FromPort string
	ToPort   string
	Category string
	Meta     map[string]any
}

// Write sets one field of one node.
type Write struct {
	NodeID string
	Field  Field
	Value  Value
}

// Delta is the observable effect of a committed write.
type Delta struct {
	NodeID string `json:"node"`
	Field  Field  `json:"field"`
	Old    Value  `json:"old"`
	New    Value  `json:"new"`
}

// Clone returns a deep copy of n. Meta maps are copied one level deep.
func (n Node) Clone() Node {
	c := n
	c.Ports = make([]Port, len(n.Ports))
	for i, p := range n.Ports {
		c.Ports[i] = Port{ID: p.ID, Meta: maps.Clone(p.Meta)}
	}
	c.SubValues = slices.Clone(n.SubValues)
	c.Statuses = slices.Clone(n.Statuses)
	c.Meta = maps.Clone(n.Meta)
	return c
}

// Clone returns a copy of e with its own Meta map.
func (e Edge) Clone() Edge {
	c := e
	c.Meta = maps.Clone(e.Meta)
	return c
}

// Field reads the field addressed by f.
func (n *Node) Field(f Field) (Value, error) {
	switch f.Kind {
	case FieldKindValue:
		if n.Value.Kind() == KindNone {
			return Value{}, ErrFieldNotFound
		}
		return n.Value, nil
	case FieldKindSubValue:
		if f.Index < 0 || f.Index >= len(n.SubValues) {
			return Value{}, ErrFieldNotFound
		}
		return NumberValue(n.SubValues[f.Index].Value), nil
	case FieldKindStatus:
		if f.Index < 0 || f.Index >= len(n.Statuses) {
			return Value{}, ErrFieldNotFound
		}
		return StatusValue(n.Statuses[f.Index]), nil
	default:
		return Value{}, ErrFieldNotFound
	}
}

// SetField writes v into the field addressed by f, checking the value kind.
func (n *Node) SetField(f Field, v Value) error {
	if _, err := n.Field(f); err != nil {
		return err
	}
	if !v.finite() {
		return ErrInvalidValue
	}
	switch f.Kind {
	case FieldKindValue:
		if !v.IsNumber() {
			return ErrInvalidValue
		}
		n.Value = v
	case FieldKindSubValue:
		num, ok := v.AsNumber()
		if !ok {
			return ErrInvalidValue
		}
		n.SubValues[f.Index].Value = num
	case FieldKindStatus:
		s, ok := v.AsStatus()
		if !ok {
			return ErrInvalidValue
		}
		n.Statuses[f.Index] = s
	}
	return nil
}

// inBounds reports whether n is within [Min, Max].
func (n *Node) inBounds() bool {
	num, ok := n.Value.AsNumber()
	if !ok {
		return true
	}
	return num >= n.Min && num <= n.Max
}
