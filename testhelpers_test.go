package main

import (
	"fmt"
	"sync"
)

// seqIDs returns an id generator yielding n001, n002, ... so tests get
// stable z-order.
func seqIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		i  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		i++
		return fmt.Sprintf("%s%03d", prefix, i)
	}
}

func testNode(id string, x, y float64) Node {
	return Node{ID: id, X: x, Y: y, Width: defaultNodeWidth, Height: defaultNodeHeight, Title: id}
}

func testLimits() ZoomLimits {
	return ZoomLimits{Min: defaultMinScale, Max: defaultMaxScale, Step: defaultZoomStep}
}

func newTestGraph() *Graph {
	g := NewGraph(DefaultCanvasConfig().nodeDefaults(), nil)
	g.newID = seqIDs("n")
	return g
}

// fakeClipboard is an in-memory Clipboard.
type fakeClipboard struct {
	text     string
	readErr  error
	writeErr error
	writes   int
}

func (c *fakeClipboard) ReadText() (string, error) {
	if c.readErr != nil {
		return "", c.readErr
	}
	return c.text, nil
}

func (c *fakeClipboard) WriteText(text string) error {
	c.writes++
	if c.writeErr != nil {
		return c.writeErr
	}
	c.text = text
	return nil
}
