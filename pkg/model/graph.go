// Package model holds the gauge graph: bounded nodes joined by fixed edges.
// All mutation goes through Apply, which is atomic with respect to readers.
package model

import (
	"fmt"
	"sync"
)

// Graph is the node/edge store. Topology is fixed after Load.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	order     []string
	edges     []Edge
	edgeIndex map[string]int
}

// Get returns a copy of the node with the given id.
func (g *Graph) Get(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return Node{}, NodeNotFoundError("get", id)
	}
	return n.Clone(), nil
}

// Nodes returns copies of every node in declaration order, taken under a
// single read lock so the result is one consistent snapshot.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// Edges returns every edge in declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = e.Clone()
	}
	return out
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (Edge, error) {
	i, ok := g.edgeIndex[id]
	if !ok {
		return Edge{}, NewError("get").Edge(id).Cause(ErrNotFound).Err()
	}
	return g.edges[i].Clone(), nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

type fieldKey struct {
	nodeID string
	field  Field
}

// Apply validates and applies a batch of writes atomically. Writes to the same
// field coalesce last-write-wins. Every touched node is re-checked against
// min <= value <= max before anything becomes visible; any failure rejects
// the whole batch and leaves the graph unchanged. Deltas whose old and new
// values are equal are dropped.
func (g *Graph) Apply(writes []Write) ([]Delta, error) {
	if len(writes) == 0 {
		return nil, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	staged := make(map[string]*Node)
	touched := make([]string, 0)
	old := make(map[fieldKey]Value)
	fields := make([]fieldKey, 0, len(writes))

	for _, w := range writes {
		n, ok := staged[w.NodeID]
		if !ok {
			cur, exists := g.nodes[w.NodeID]
			if !exists {
				return nil, NodeNotFoundError("apply", w.NodeID)
			}
			c := cur.Clone()
			n = &c
			staged[w.NodeID] = n
			touched = append(touched, w.NodeID)
		}

		prev, err := n.Field(w.Field)
		if err != nil {
			return nil, NewError("apply").Node(w.NodeID).Field(w.Field).Cause(err).Err()
		}
		if err := n.SetField(w.Field, w.Value); err != nil {
			return nil, NewError("apply").Node(w.NodeID).Field(w.Field).
				Cause(err).Context("%s %s", w.Value.Kind(), w.Value).Err()
		}

		k := fieldKey{nodeID: w.NodeID, field: w.Field}
		if _, seen := old[k]; !seen {
			old[k] = prev
			fields = append(fields, k)
		}
	}

	for _, id := range touched {
		n := staged[id]
		if !n.inBounds() {
			return nil, NewError("apply").Node(id).Field(FieldValue).Cause(ErrInvariantViolation).
				Context("%s not in [%g, %g]", n.Value, n.Min, n.Max).Err()
		}
	}

	deltas := make([]Delta, 0, len(fields))
	for _, k := range fields {
		cur, _ := staged[k.nodeID].Field(k.field)
		if old[k].Equal(cur) {
			continue
		}
		deltas = append(deltas, Delta{NodeID: k.nodeID, Field: k.field, Old: old[k], New: cur})
	}

	for _, id := range touched {
		g.nodes[id] = staged[id]
	}
	return deltas, nil
}

// String summarizes the graph for debugging.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{nodes: %d, edges: %d}", len(g.order), len(g.edges))
}
