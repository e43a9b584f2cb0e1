package main

import "math"

// Camera is the pan/zoom transform between screen and canvas space.
// Its methods return a new Camera rather than mutating the receiver.
type Camera struct {
	X, Y  float64
	Scale float64
}

// ZoomLimits bound the camera scale and set the wheel step.
type ZoomLimits struct {
	Min, Max, Step float64
}

// CameraPatch overwrites the fields that are set.
type CameraPatch struct {
	X, Y, Scale *float64
}

func NewCamera() Camera {
	return Camera{Scale: 1}
}

func (c Camera) ScreenToCanvas(p Point) Point {
	return Point{(p.X - c.X) / c.Scale, (p.Y - c.Y) / c.Scale}
}

func (c Camera) CanvasToScreen(p Point) Point {
	return Point{p.X*c.Scale + c.X, p.Y*c.Scale + c.Y}
}

func (l ZoomLimits) clamp(s float64) float64 {
	return math.Max(l.Min, math.Min(l.Max, s))
}

// ZoomAt applies one zoom step and re-solves the offset so the canvas
// point under pointer stays under pointer.
func (c Camera) ZoomAt(pointer Point, in bool, lim ZoomLimits) Camera {
	factor := 1 - lim.Step
	if in {
		factor = 1 + lim.Step
	}
	return c.ZoomTo(pointer, c.Scale*factor, lim)
}

// ZoomTo rescales to s (clamped) anchored at pointer.
func (c Camera) ZoomTo(pointer Point, s float64, lim ZoomLimits) Camera {
	s = lim.clamp(s)
	if s == c.Scale {
		return c
	}
	return Camera{
		X:     pointer.X - (pointer.X-c.X)/c.Scale*s,
		Y:     pointer.Y - (pointer.Y-c.Y)/c.Scale*s,
		Scale: s,
	}
}

func (c Camera) Pan(d Point) Camera {
	c.X += d.X
	c.Y += d.Y
	return c
}

// SetPosition overwrites the camera from persisted state. A non-positive
// scale is ignored; any other scale is clamped into the limits.
func (c Camera) SetPosition(p CameraPatch, lim ZoomLimits) Camera {
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	if p.Scale != nil && *p.Scale > 0 {
		c.Scale = lim.clamp(*p.Scale)
	}
	return c
}

// Fit frames the canvas rectangle [min, max] inside a viewport of the
// given size with margin screen pixels on every side.
func (c Camera) Fit(min, max Point, viewport Size, margin float64, lim ZoomLimits) Camera {
	w := max.X - min.X
	h := max.Y - min.Y
	availW := viewport.W - 2*margin
	availH := viewport.H - 2*margin
	if w <= 0 || h <= 0 || availW <= 0 || availH <= 0 {
		return c
	}
	s := lim.clamp(math.Min(availW/w, availH/h))
	return Camera{
		X:     (viewport.W-w*s)/2 - min.X*s,
		Y:     (viewport.H-h*s)/2 - min.Y*s,
		Scale: s,
	}
}
