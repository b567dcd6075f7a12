// Package description reads and writes the static load description of a
// gauge diagram: an ordered node data array and an ordered link data array,
// with the same field names as a nodeDataArray/linkDataArray diagram model.
package description

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dd0wney/cluso-controlroom/pkg/validation"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported description format")
	ErrInvalid           = errors.New("invalid description")
)

// Description is an ordered set of node and link records.
type Description struct {
	Nodes []NodeRecord `json:"nodeDataArray" yaml:"nodeDataArray" validate:"dive"`
	Edges []EdgeRecord `json:"linkDataArray" yaml:"linkDataArray" validate:"dive"`
}

// Key identifies a node or link. Keys may be written as numbers or strings;
// Numeric remembers which so encoding round-trips.
type Key struct {
	Text    string `validate:"required"`
	Numeric bool
}

// StringKey returns a string key.
func StringKey(s string) Key {
	return Key{Text: s}
}

// IntKey returns a numeric key.
func IntKey(i int) Key {
	return Key{Text: strconv.Itoa(i), Numeric: true}
}

func (k Key) String() string {
	return k.Text
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k.Text == ""
}

// Number is a float that also accepts numeric strings such as "12.0".
type Number float64

// Float returns n as a float64, or fallback when n is nil.
func (n *Number) Float(fallback float64) float64 {
	if n == nil {
		return fallback
	}
	return float64(*n)
}

// Num returns a pointer to a Number, for building descriptions in code.
func Num(f float64) *Number {
	n := Number(f)
	return &n
}

// Text is a string that also accepts bare numbers (a unit of 5 reads as "5").
type Text string

// NodeRecord is one entry of the node data array.
type NodeRecord struct {
	Key      Key              `json:"key" yaml:"key"`
	Category string           `json:"category,omitempty" yaml:"category,omitempty"`
	Value    *Number          `json:"value,omitempty" yaml:"value,omitempty"`
	Min      *Number          `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *Number          `json:"max,omitempty" yaml:"max,omitempty"`
	Unit     Text             `json:"unit,omitempty" yaml:"unit,omitempty"`
	Editable bool             `json:"editable,omitempty" yaml:"editable,omitempty"`
	Ports    []PortRecord     `json:"ports,omitempty" yaml:"ports,omitempty" validate:"dive"`
	Values   []SubValueRecord `json:"values,omitempty" yaml:"values,omitempty" validate:"dive"`
	Statuses []StatusRecord   `json:"statuses,omitempty" yaml:"statuses,omitempty" validate:"dive"`

	// Extra holds presentation keys (text, color, loc, pos, ...) verbatim.
	Extra map[string]any `json:"-" yaml:",inline"`
}

// PortRecord is a named connection point. Only the name matters to the model.
type PortRecord struct {
	Name  string         `json:"p" yaml:"p" validate:"required"`
	Extra map[string]any `json:"-" yaml:",inline"`
}

// SubValueRecord is one row of a monitor panel.
type SubValueRecord struct {
	Label string `json:"label" yaml:"label"`
	Unit  Text   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Value Number `json:"value" yaml:"value"`
}

// StatusRecord is one status indicator; Fill names its palette state.
type StatusRecord struct {
	Fill string `json:"fill" yaml:"fill" validate:"required"`
}

// EdgeRecord is one entry of the link data array.
type EdgeRecord struct {
	Key      Key    `json:"key" yaml:"key"`
	From     Key    `json:"from" yaml:"from"`
	To       Key    `json:"to" yaml:"to"`
	FromPort string `json:"fromPort,omitempty" yaml:"fromPort,omitempty"`
	ToPort   string `json:"toPort,omitempty" yaml:"toPort,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Extra holds routing and styling keys (text, color, fs, ts, ...) verbatim.
	Extra map[string]any `json:"-" yaml:",inline"`
}

// Validate checks the struct-level rules: every node, link endpoint, port
// and status carries its required key.
func (d *Description) Validate() error {
	if err := validation.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// EdgeKeys returns the key of every link in order. Keyless links get a
// negative numeric key (-1, -2, ...) that does not collide with an explicit
// key. The description is not modified.
func (d *Description) EdgeKeys() []Key {
	keys := make([]Key, len(d.Edges))
	used := make(map[string]bool, len(d.Edges))
	for _, e := range d.Edges {
		if !e.Key.IsZero() {
			used[e.Key.Text] = true
		}
	}
	next := -1
	for i, e := range d.Edges {
		if !e.Key.IsZero() {
			keys[i] = e.Key
			continue
		}
		for used[strconv.Itoa(next)] {
			next--
		}
		keys[i] = IntKey(next)
		used[keys[i].Text] = true
		next--
	}
	return keys
}

func (d *Description) assignEdgeKeys() {
	for i, k := range d.EdgeKeys() {
		d.Edges[i].Key = k
	}
}
