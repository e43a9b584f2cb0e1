package main

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NodeDefaults sizes new nodes and bounds resizes.
type NodeDefaults struct {
	Width, Height       float64
	MinWidth, MinHeight float64
	Title               string
}

// Graph owns the canonical node and edge collections. Deleting a node
// cascades to its incident edges, so no edge ever dangles.
type Graph struct {
	nodes    NodeMap
	edges    EdgeMap
	defaults NodeDefaults
	newID    func() string
	logger   *zap.Logger
}

func NewGraph(defaults NodeDefaults, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		nodes:    NodeMap{},
		edges:    EdgeMap{},
		defaults: defaults,
		newID:    newID,
		logger:   logger,
	}
}

// newID returns a UUIDv7 string. v7 ids sort in creation order, which the
// canvas uses as z-order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Graph) CreateNode(x, y float64) Node {
	n := Node{
		ID:     g.newID(),
		X:      x,
		Y:      y,
		Width:  g.defaults.Width,
		Height: g.defaults.Height,
		Title:  g.defaults.Title,
	}
	g.nodes[n.ID] = n
	g.logger.Debug("node created", zap.String("id", n.ID), zap.Float64("x", x), zap.Float64("y", y))
	return n
}

// UpdateNode merges the set fields of p into the node. Unknown ids are
// ignored.
func (g *Graph) UpdateNode(id string, p NodePatch) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.Width != nil {
		n.Width = *p.Width
	}
	if p.Height != nil {
		n.Height = *p.Height
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Collapsed != nil {
		n.Collapsed = *p.Collapsed
	}
	if p.TitleColor != nil {
		n.TitleColor = *p.TitleColor
	}
	g.nodes[id] = n
}

func (g *Graph) MoveNode(id string, x, y float64) {
	g.UpdateNode(id, NodePatch{X: &x, Y: &y})
}

// ResizeNode sets the size, clamped to the configured minimum.
func (g *Graph) ResizeNode(id string, w, h float64) {
	w, h = g.ClampSize(w, h)
	g.UpdateNode(id, NodePatch{Width: &w, Height: &h})
}

func (g *Graph) ClampSize(w, h float64) (float64, float64) {
	return math.Max(w, g.defaults.MinWidth), math.Max(h, g.defaults.MinHeight)
}

func (g *Graph) ToggleCollapse(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	n.Collapsed = !n.Collapsed
	g.nodes[id] = n
}

// DeleteNode removes the node and every edge touching it, returning the
// removed edges.
func (g *Graph) DeleteNode(id string) []Edge {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	delete(g.nodes, id)
	removed := g.EdgesOf(id)
	for _, e := range removed {
		delete(g.edges, e.ID)
	}
	g.logger.Debug("node deleted", zap.String("id", id), zap.Int("edges", len(removed)))
	return removed
}

// CanConnect reports whether CreateEdge(from, to) would succeed.
func (g *Graph) CanConnect(from, to string) bool {
	if from == to {
		return false
	}
	if _, ok := g.nodes[from]; !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	for _, e := range g.edges {
		if (e.From == from && e.To == to) || (e.From == to && e.To == from) {
			return false
		}
	}
	return true
}

// CreateEdge connects from to to. It returns false, with no state change,
// for self-edges, unknown nodes, or a pair that is already connected in
// either direction.
func (g *Graph) CreateEdge(from, to string) (Edge, bool) {
	if !g.CanConnect(from, to) {
		g.logger.Debug("edge rejected", zap.String("from", from), zap.String("to", to))
		return Edge{}, false
	}
	e := Edge{ID: g.newID(), From: from, To: to}
	g.edges[e.ID] = e
	return e, true
}

func (g *Graph) UpdateEdge(id string, p EdgePatch) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	if p.Label != nil {
		e.Label = *p.Label
	}
	g.edges[id] = e
}

func (g *Graph) DeleteEdge(id string) {
	delete(g.edges, id)
}

// SetNodes replaces every node. It restores a previously valid state and
// does no validation.
func (g *Graph) SetNodes(nodes NodeMap) {
	g.nodes = nodes.Clone()
}

func (g *Graph) SetEdges(edges EdgeMap) {
	g.edges = edges.Clone()
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Edge(id string) (Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// EdgesOf returns the edges with id at either end.
func (g *Graph) EdgesOf(id string) []Edge {
	var out []Edge
	for _, e := range g.edges.Sorted() {
		if e.From == id || e.To == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) Nodes() []Node { return g.nodes.Sorted() }
func (g *Graph) Edges() []Edge { return g.edges.Sorted() }

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Snapshot returns a deep copy of the current state.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.nodes.Clone(), Edges: g.edges.Clone()}
}

// state exposes the live maps to callers that copy them immediately.
func (g *Graph) state() (NodeMap, EdgeMap) {
	return g.nodes, g.edges
}
