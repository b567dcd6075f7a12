package model

import (
	"maps"
	"math"

	"github.com/dd0wney/cluso-controlroom/pkg/description"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
)

// Default bounds for nodes that omit min or max.
const (
	DefaultMin = 0.0
	DefaultMax = 100.0
)

// Load builds a graph from a description. Duplicate keys, dangling edge
// endpoints and inverted bounds fail with ErrConfig and no graph is returned.
// Initial values outside [min, max] are clamped with a warning. Keyless
// edges get negative keys the way Decode assigns them.
func Load(desc *description.Description, logger logging.Logger) (*Graph, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if desc == nil {
		return nil, NewError("load").Cause(ErrConfig).Context("nil description").Err()
	}

	g := &Graph{
		nodes:     make(map[string]*Node, len(desc.Nodes)),
		order:     make([]string, 0, len(desc.Nodes)),
		edges:     make([]Edge, 0, len(desc.Edges)),
		edgeIndex: make(map[string]int, len(desc.Edges)),
	}

	for _, rec := range desc.Nodes {
		n, err := nodeFromRecord(rec, logger)
		if err != nil {
			return nil, err
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, NewError("load").Node(n.ID).Cause(ErrConfig).Context("duplicate key").Err()
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	keys := desc.EdgeKeys()
	for i, rec := range desc.Edges {
		e := Edge{
			ID:       keys[i].String(),
			From:     rec.From.String(),
			To:       rec.To.String(),
			FromPort: rec.FromPort,
			ToPort:   rec.ToPort,
			Category: rec.Category,
			Meta:     maps.Clone(rec.Extra),
		}
		if _, dup := g.edgeIndex[e.ID]; dup {
			return nil, NewError("load").Edge(e.ID).Cause(ErrConfig).Context("duplicate key").Err()
		}
		if _, ok := g.nodes[e.From]; !ok {
			return nil, NewError("load").Edge(e.ID).Cause(ErrConfig).Context("unknown source %q", e.From).Err()
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, NewError("load").Edge(e.ID).Cause(ErrConfig).Context("unknown target %q", e.To).Err()
		}
		g.edgeIndex[e.ID] = len(g.edges)
		g.edges = append(g.edges, e)
	}

	logger.Debug("model loaded",
		logging.Count(len(g.order)),
		logging.Int("edges", len(g.edges)))
	return g, nil
}

func nodeFromRecord(rec description.NodeRecord, logger logging.Logger) (*Node, error) {
	id := rec.Key.String()
	n := &Node{
		ID:       id,
		Category: rec.Category,
		Min:      rec.Min.Float(DefaultMin),
		Max:      rec.Max.Float(DefaultMax),
		Unit:     string(rec.Unit),
		Editable: rec.Editable,
		Meta:     maps.Clone(rec.Extra),
	}
	if !finite(n.Min) || !finite(n.Max) || n.Min > n.Max {
		return nil, NewError("load").Node(id).Cause(ErrConfig).Context("bounds [%g, %g]", n.Min, n.Max).Err()
	}

	if rec.Value != nil {
		v := float64(*rec.Value)
		if !finite(v) {
			return nil, NewError("load").Node(id).Field(FieldValue).Cause(ErrConfig).Context("value %g", v).Err()
		}
		if clamped := math.Min(math.Max(v, n.Min), n.Max); clamped != v {
			logger.Warn("initial value out of range, clamped",
				logging.NodeID(id),
				logging.Float64("value", v),
				logging.Float64("clamped", clamped),
				logging.Float64("min", n.Min),
				logging.Float64("max", n.Max))
			v = clamped
		}
		n.Value = NumberValue(v)
	}

	for _, p := range rec.Ports {
		n.Ports = append(n.Ports, Port{ID: p.Name, Meta: maps.Clone(p.Extra)})
	}
	for i, sv := range rec.Values {
		v := float64(sv.Value)
		if !finite(v) {
			return nil, NewError("load").Node(id).Field(SubValueField(i)).Cause(ErrConfig).Context("value %g", v).Err()
		}
		n.SubValues = append(n.SubValues, SubValue{Label: sv.Label, Unit: string(sv.Unit), Value: v})
	}
	for _, s := range rec.Statuses {
		n.Statuses = append(n.Statuses, s.Fill)
	}
	return n, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
