package description

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// hclFile is the HCL form of a description:
//
//	node "MHWT" {
//	  category = "tank"
//	  port "BL1" { a = "0 1 0 -50" }
//	}
//	node "cTCV102" {
//	  category = "monitor"
//	  reading {
//	    label = "SV"
//	    unit  = "°C"
//	    value = 12.0
//	  }
//	  status { fill = "green" }
//	}
//	link {
//	  from      = "MHWT"
//	  to        = "1"
//	  from_port = "BL1"
//	}
//
// Attributes not named below are kept in Extra.
type hclFile struct {
	Nodes []hclNode `hcl:"node,block"`
	Links []hclLink `hcl:"link,block"`
}

type hclNode struct {
	Key      string       `hcl:"key,label"`
	Category string       `hcl:"category,optional"`
	Value    *float64     `hcl:"value,optional"`
	Min      *float64     `hcl:"min,optional"`
	Max      *float64     `hcl:"max,optional"`
	Unit     string       `hcl:"unit,optional"`
	Editable bool         `hcl:"editable,optional"`
	Ports    []hclPort    `hcl:"port,block"`
	Readings []hclReading `hcl:"reading,block"`
	Statuses []hclStatus  `hcl:"status,block"`
	Remain   hcl.Body     `hcl:",remain"`
}

type hclPort struct {
	Name   string   `hcl:"name,label"`
	Remain hcl.Body `hcl:",remain"`
}

type hclReading struct {
	Label string  `hcl:"label"`
	Unit  string  `hcl:"unit,optional"`
	Value float64 `hcl:"value"`
}

type hclStatus struct {
	Fill string `hcl:"fill"`
}

type hclLink struct {
	Key      hcl.Expression `hcl:"key,optional"`
	From     hcl.Expression `hcl:"from"`
	To       hcl.Expression `hcl:"to"`
	FromPort string         `hcl:"from_port,optional"`
	ToPort   string         `hcl:"to_port,optional"`
	Category string         `hcl:"category,optional"`
	Remain   hcl.Body       `hcl:",remain"`
}

func decodeHCL(data []byte, filename string) (*Description, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL description %s: %s", filename, diags.Error())
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL description %s: %s", filename, diags.Error())
	}

	d := &Description{
		Nodes: make([]NodeRecord, 0, len(parsed.Nodes)),
		Edges: make([]EdgeRecord, 0, len(parsed.Links)),
	}
	for _, n := range parsed.Nodes {
		rec, err := n.record()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Key, err)
		}
		d.Nodes = append(d.Nodes, rec)
	}
	for i, l := range parsed.Links {
		rec, err := l.record()
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		d.Edges = append(d.Edges, rec)
	}
	return d, nil
}

func (n hclNode) record() (NodeRecord, error) {
	rec := NodeRecord{
		Key:      StringKey(n.Key),
		Category: n.Category,
		Unit:     Text(n.Unit),
		Editable: n.Editable,
	}
	if n.Value != nil {
		rec.Value = Num(*n.Value)
	}
	if n.Min != nil {
		rec.Min = Num(*n.Min)
	}
	if n.Max != nil {
		rec.Max = Num(*n.Max)
	}
	for _, p := range n.Ports {
		extra, err := remainAttributes(p.Remain, p)
		if err != nil {
			return rec, fmt.Errorf("port %q: %w", p.Name, err)
		}
		rec.Ports = append(rec.Ports, PortRecord{Name: p.Name, Extra: extra})
	}
	for _, r := range n.Readings {
		rec.Values = append(rec.Values, SubValueRecord{Label: r.Label, Unit: Text(r.Unit), Value: Number(r.Value)})
	}
	for _, s := range n.Statuses {
		rec.Statuses = append(rec.Statuses, StatusRecord{Fill: s.Fill})
	}
	extra, err := remainAttributes(n.Remain, n)
	if err != nil {
		return rec, err
	}
	rec.Extra = extra
	return rec, nil
}

func (l hclLink) record() (EdgeRecord, error) {
	rec := EdgeRecord{FromPort: l.FromPort, ToPort: l.ToPort, Category: l.Category}
	var err error
	if rec.Key, err = keyFromExpr(l.Key); err != nil {
		return rec, fmt.Errorf("key: %w", err)
	}
	if rec.From, err = keyFromExpr(l.From); err != nil {
		return rec, fmt.Errorf("from: %w", err)
	}
	if rec.To, err = keyFromExpr(l.To); err != nil {
		return rec, fmt.Errorf("to: %w", err)
	}
	extra, err := remainAttributes(l.Remain, l)
	if err != nil {
		return rec, err
	}
	rec.Extra = extra
	return rec, nil
}

// keyFromExpr evaluates a static key expression. Null yields the zero key.
func keyFromExpr(expr hcl.Expression) (Key, error) {
	if expr == nil {
		return Key{}, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return Key{}, fmt.Errorf("%s", diags.Error())
	}
	switch {
	case v.IsNull():
		return Key{}, nil
	case v.Type() == cty.String:
		return StringKey(v.AsString()), nil
	case v.Type() == cty.Number:
		return Key{Text: v.AsBigFloat().Text('f', -1), Numeric: true}, nil
	default:
		return Key{}, fmt.Errorf("key must be a string or number, got %s", v.Type().FriendlyName())
	}
}

// remainAttributes converts the attributes of body that the decoded struct
// does not name into plain Go values through their JSON form. Nested blocks
// such as port and reading are left to their own fields.
func remainAttributes(body hcl.Body, decoded any) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}

	var attrs hcl.Attributes
	if sb, ok := body.(*hclsyntax.Body); ok {
		schema, _ := gohcl.ImpliedBodySchema(decoded)
		known := make(map[string]bool, len(schema.Attributes))
		for _, a := range schema.Attributes {
			known[a.Name] = true
		}
		attrs = make(hcl.Attributes, len(sb.Attributes))
		for name, attr := range sb.Attributes {
			if !known[name] {
				attrs[name] = attr.AsHCLAttribute()
			}
		}
	} else {
		var diags hcl.Diagnostics
		attrs, diags = body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s", diags.Error())
		}
	}
	if len(attrs) == 0 {
		return nil, nil
	}

	extra := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %s", name, diags.Error())
		}
		raw, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		var val any
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		extra[name] = val
	}
	return extra, nil
}
