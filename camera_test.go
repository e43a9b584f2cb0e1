package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCameraInverse(t *testing.T) {
	cameras := []Camera{
		NewCamera(),
		{X: 120, Y: -45, Scale: 1},
		{X: -300.5, Y: 80.25, Scale: 0.1},
		{X: 17, Y: 3, Scale: 2.7},
	}
	points := []Point{{0, 0}, {1, 1}, {640, 480}, {-250.75, 1e4}, {3.3, -0.001}}

	for _, c := range cameras {
		for _, p := range points {
			got := c.CanvasToScreen(c.ScreenToCanvas(p))
			assert.InDelta(t, p.X, got.X, 1e-9)
			assert.InDelta(t, p.Y, got.Y, 1e-9)
		}
	}
}

func TestZoomStaysClamped(t *testing.T) {
	lim := testLimits()
	pointer := Point{400, 300}

	for _, start := range []float64{0.1, 0.5, 1, 2.95, 3} {
		c := Camera{Scale: start}
		for i := 0; i < 100; i++ {
			c = c.ZoomAt(pointer, true, lim)
			assert.LessOrEqual(t, c.Scale, lim.Max)
			assert.GreaterOrEqual(t, c.Scale, lim.Min)
		}
		assert.Equal(t, lim.Max, c.Scale)
		for i := 0; i < 100; i++ {
			c = c.ZoomAt(pointer, false, lim)
			assert.LessOrEqual(t, c.Scale, lim.Max)
			assert.GreaterOrEqual(t, c.Scale, lim.Min)
		}
		assert.Equal(t, lim.Min, c.Scale)
	}
}

func TestZoomKeepsPointerAnchored(t *testing.T) {
	lim := testLimits()
	cams := []Camera{NewCamera(), {X: 37, Y: -90, Scale: 0.6}, {X: -400, Y: 12, Scale: 2.2}}
	pointers := []Point{{0, 0}, {512, 384}, {-20, 900}}

	for _, c := range cams {
		for _, p := range pointers {
			for _, in := range []bool{true, false} {
				before := c.ScreenToCanvas(p)
				after := c.ZoomAt(p, in, lim).ScreenToCanvas(p)
				assert.InDelta(t, before.X, after.X, 1e-9)
				assert.InDelta(t, before.Y, after.Y, 1e-9)
			}
		}
	}
}

func TestZoomStep(t *testing.T) {
	lim := testLimits()
	assert.InDelta(t, 1.1, NewCamera().ZoomAt(Point{}, true, lim).Scale, 1e-12)
	assert.InDelta(t, 0.9, NewCamera().ZoomAt(Point{}, false, lim).Scale, 1e-12)
}

func TestPan(t *testing.T) {
	c := Camera{X: 10, Y: 20, Scale: 2}.Pan(Point{5, -5})
	assert.Equal(t, Camera{X: 15, Y: 15, Scale: 2}, c)
}

func TestSetPosition(t *testing.T) {
	lim := testLimits()
	c := NewCamera()

	got := c.SetPosition(CameraPatch{X: ptr(5.0), Y: ptr(-7.0), Scale: ptr(2.0)}, lim)
	assert.Equal(t, Camera{X: 5, Y: -7, Scale: 2}, got)

	got = c.SetPosition(CameraPatch{Scale: ptr(0.0)}, lim)
	assert.Equal(t, 1.0, got.Scale, "non-positive scale is ignored")

	got = c.SetPosition(CameraPatch{Scale: ptr(10.0)}, lim)
	assert.Equal(t, lim.Max, got.Scale)

	got = c.SetPosition(CameraPatch{X: ptr(3.0)}, lim)
	assert.Equal(t, Camera{X: 3, Scale: 1}, got)
}

func TestFit(t *testing.T) {
	lim := testLimits()
	c := NewCamera().Fit(Point{0, 0}, Point{200, 100}, Size{440, 240}, 20, lim)

	assert.InDelta(t, 2, c.Scale, 1e-12)
	assert.InDelta(t, 20, c.X, 1e-12)
	assert.InDelta(t, 20, c.Y, 1e-12)

	same := NewCamera().Fit(Point{0, 0}, Point{0, 0}, Size{440, 240}, 20, lim)
	assert.Equal(t, NewCamera(), same)
}
