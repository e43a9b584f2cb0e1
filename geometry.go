package main

import "math"

// HandlePoint is a fixed attachment point on one side of a node.
type HandlePoint struct {
	NodeID string
	Side   Side
	Point
}

// Handles are the four mid-edge anchors of a node.
type Handles struct {
	Top, Right, Bottom, Left HandlePoint
}

func (h Handles) All() [4]HandlePoint {
	return [4]HandlePoint{h.Top, h.Right, h.Bottom, h.Left}
}

// HandleHit is the result of a nearest-handle search.
type HandleHit struct {
	Handle   HandlePoint
	Distance float64
}

// EffectiveHeight is the rendered height: the header only when collapsed.
func EffectiveHeight(n Node) float64 {
	if n.Collapsed {
		return collapsedHeight
	}
	return n.Height
}

func HandlePoints(n Node) Handles {
	h := EffectiveHeight(n)
	cx := n.X + n.Width/2
	cy := n.Y + h/2
	return Handles{
		Top:    HandlePoint{NodeID: n.ID, Side: SideTop, Point: Point{cx, n.Y}},
		Right:  HandlePoint{NodeID: n.ID, Side: SideRight, Point: Point{n.X + n.Width, cy}},
		Bottom: HandlePoint{NodeID: n.ID, Side: SideBottom, Point: Point{cx, n.Y + h}},
		Left:   HandlePoint{NodeID: n.ID, Side: SideLeft, Point: Point{n.X, cy}},
	}
}

func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ClosestHandle returns the anchor of n nearest to p. Ties go to the
// first side in top, right, bottom, left order.
func ClosestHandle(n Node, p Point) HandlePoint {
	handles := HandlePoints(n).All()
	best := handles[0]
	bestDist := Distance(best.Point, p)
	for _, h := range handles[1:] {
		if d := Distance(h.Point, p); d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}

// FindClosestHandleAcrossNodes scans every node except excludeID and
// returns the globally nearest handle. ok is false when no node qualifies.
func FindClosestHandleAcrossNodes(nodes []Node, p Point, excludeID string) (hit HandleHit, ok bool) {
	for _, n := range nodes {
		if n.ID == excludeID {
			continue
		}
		h := ClosestHandle(n, p)
		d := Distance(h.Point, p)
		if !ok || d < hit.Distance {
			hit = HandleHit{Handle: h, Distance: d}
			ok = true
		}
	}
	return hit, ok
}

// Snapped reports whether a handle at distance d captures a connection drag.
func Snapped(d, threshold float64) bool {
	return d < threshold
}

// BestEdgeAnchorPair picks the pair of anchors, one on each node, with the
// minimum Euclidean distance. This is an exhaustive 4x4 search run for
// every edge on every frame; it is cheap for diagrams of hundreds of
// nodes but is the first thing to revisit for dense graphs.
func BestEdgeAnchorPair(from, to Node) (start, end HandlePoint) {
	fromHandles := HandlePoints(from).All()
	toHandles := HandlePoints(to).All()
	best := math.Inf(1)
	for _, a := range fromHandles {
		for _, b := range toHandles {
			if d := Distance(a.Point, b.Point); d < best {
				best = d
				start, end = a, b
			}
		}
	}
	return start, end
}

// Contains reports whether p lies inside the rendered rectangle of n.
func Contains(n Node, p Point) bool {
	return p.X >= n.X && p.X <= n.X+n.Width &&
		p.Y >= n.Y && p.Y <= n.Y+EffectiveHeight(n)
}

// InHeader reports whether p lies in the title strip of n.
func InHeader(n Node, p Point) bool {
	return Contains(n, p) && p.Y < n.Y+headerHeight
}

// NodeAt returns the topmost node containing p. nodes are in z-order.
func NodeAt(nodes []Node, p Point) (Node, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if Contains(nodes[i], p) {
			return nodes[i], true
		}
	}
	return Node{}, false
}

// HandleAt returns the handle nearest to p if it lies within radius.
func HandleAt(nodes []Node, p Point, radius float64) (HandlePoint, bool) {
	hit, ok := FindClosestHandleAcrossNodes(nodes, p, "")
	if !ok || hit.Distance > radius {
		return HandlePoint{}, false
	}
	return hit.Handle, true
}

// CornerAt returns the node whose bottom-right corner lies within radius
// of p. Collapsed nodes have no resize corner.
func CornerAt(nodes []Node, p Point, radius float64) (Node, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Collapsed {
			continue
		}
		if Distance(Point{n.X + n.Width, n.Y + n.Height}, p) <= radius {
			return n, true
		}
	}
	return Node{}, false
}

// DistanceToSegment is the distance from p to the segment ab.
func DistanceToSegment(p, a, b Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, a.Add(ab.Mul(t)))
}

// EdgeAt returns the edge whose rendered segment passes within tolerance
// of p. Later edges win ties, matching draw order.
func EdgeAt(edges []Edge, nodes NodeMap, p Point, tolerance float64) (Edge, bool) {
	var (
		found Edge
		ok    bool
		best  = math.Inf(1)
	)
	for _, e := range edges {
		from, okFrom := nodes[e.From]
		to, okTo := nodes[e.To]
		if !okFrom || !okTo {
			continue
		}
		start, end := BestEdgeAnchorPair(from, to)
		if d := DistanceToSegment(p, start.Point, end.Point); d <= tolerance && d <= best {
			found, ok, best = e, true, d
		}
	}
	return found, ok
}

// Midpoint is where an edge label is drawn.
func Midpoint(a, b Point) Point {
	return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// Bounds returns the canvas rectangle enclosing every node.
func Bounds(nodes []Node) (min, max Point, ok bool) {
	for _, n := range nodes {
		lo := Point{n.X, n.Y}
		hi := Point{n.X + n.Width, n.Y + EffectiveHeight(n)}
		if !ok {
			min, max, ok = lo, hi, true
			continue
		}
		min = Point{math.Min(min.X, lo.X), math.Min(min.Y, lo.Y)}
		max = Point{math.Max(max.X, hi.X), math.Max(max.Y, hi.Y)}
	}
	return min, max, ok
}

// Centre is the middle of a node's rendered rectangle.
func Centre(n Node) Point {
	return Point{n.X + n.Width/2, n.Y + EffectiveHeight(n)/2}
}
