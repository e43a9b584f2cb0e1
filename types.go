package main

import "sort"

type Point struct {
	X, Y float64
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Mul(f float64) Point { return Point{p.X * f, p.Y * f} }

type Size struct {
	W, H float64
}

// Node is a titled rectangle on the canvas. (X, Y) is the top-left corner
// in canvas space.
type Node struct {
	ID          string  `json:"id" validate:"required"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width" validate:"gt=0"`
	Height      float64 `json:"height" validate:"gt=0"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Collapsed   bool    `json:"collapsed"`
	TitleColor  string  `json:"titleColor,omitempty"`
}

func (n Node) Origin() Point { return Point{n.X, n.Y} }

// Edge is a directional relation between two nodes. It owns no geometry.
type Edge struct {
	ID    string `json:"id" validate:"required"`
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Label string `json:"label,omitempty"`
}

type NodeMap map[string]Node

type EdgeMap map[string]Edge

// Clone returns an independent copy. Node values hold no references, so
// copying the map is a deep copy.
func (m NodeMap) Clone() NodeMap {
	out := make(NodeMap, len(m))
	for id, n := range m {
		out[id] = n
	}
	return out
}

// Sorted returns the nodes in ascending id order, which is also z-order.
func (m NodeMap) Sorted() []Node {
	out := make([]Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m EdgeMap) Clone() EdgeMap {
	out := make(EdgeMap, len(m))
	for id, e := range m {
		out[id] = e
	}
	return out
}

func (m EdgeMap) Sorted() []Edge {
	out := make([]Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodePatch carries the fields an update sets; nil fields are left alone.
type NodePatch struct {
	X           *float64
	Y           *float64
	Width       *float64
	Height      *float64
	Title       *string
	Description *string
	Collapsed   *bool
	TitleColor  *string
}

type EdgePatch struct {
	Label *string
}

// Snapshot is an immutable copy of the graph at one point in time.
type Snapshot struct {
	Nodes NodeMap
	Edges EdgeMap
}

// Modifiers describes the keys held during a pointer press.
type Modifiers struct {
	Toggle bool
}

func ptr[T any](v T) *T { return &v }
