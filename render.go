package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

type cellKind uint8

const (
	cellBlank cellKind = iota
	cellBorder
	cellSelected
	cellTitle
	cellText
	cellEdge
	cellEdgeSelected
	cellLabel
	cellPending
	cellSnapped
	cellHandle
)

type cell struct {
	r     rune
	kind  cellKind
	color string
}

// Grid is a scene rasterized onto terminal cells.
type Grid struct {
	cells [][]cell
	cols  int
	rows  int
	cw    float64
	ch    float64
	cam   Camera
}

type boxRunes struct {
	tl, tr, bl, br, h, v rune
}

var (
	plainBox    = boxRunes{'┌', '┐', '└', '┘', '─', '│'}
	selectedBox = boxRunes{'╔', '╗', '╚', '╝', '═', '║'}
)

// RenderGrid draws scene onto a cols x rows grid where one cell covers
// cw x ch screen pixels. Edges go first so boxes sit on top of them.
func RenderGrid(scene Scene, cols, rows int, cw, ch float64) *Grid {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	g := &Grid{cols: cols, rows: rows, cw: cw, ch: ch, cam: scene.Camera}
	g.cells = make([][]cell, rows)
	for y := range g.cells {
		g.cells[y] = make([]cell, cols)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{r: ' '}
		}
	}

	for _, e := range scene.Edges {
		g.drawEdge(e)
	}
	if p := scene.Pending; p != nil {
		g.drawPending(*p)
	}
	for _, n := range scene.Nodes {
		g.drawNode(n)
	}
	for _, n := range scene.Nodes {
		if n.Selected {
			for _, h := range HandlePoints(n.Node).All() {
				x, y := g.cellOf(h.Point)
				g.set(x, y, '●', cellHandle, "")
			}
		}
	}
	return g
}

func (g *Grid) cellOf(p Point) (int, int) {
	s := g.cam.CanvasToScreen(p)
	return int(math.Floor(s.X / g.cw)), int(math.Floor(s.Y / g.ch))
}

func (g *Grid) inBounds(x, y int) bool {
	return y >= 0 && y < g.rows && x >= 0 && x < g.cols
}

func (g *Grid) set(x, y int, r rune, kind cellKind, color string) {
	if g.inBounds(x, y) {
		g.cells[y][x] = cell{r: r, kind: kind, color: color}
	}
}

func (g *Grid) text(x, y, maxWidth int, s string, kind cellKind, color string) {
	if maxWidth <= 0 {
		return
	}
	s = truncate.StringWithTail(s, uint(maxWidth), "…")
	i := 0
	for _, r := range s {
		g.set(x+i, y, r, kind, color)
		i++
	}
}

func (g *Grid) drawNode(n SceneNode) {
	x0, y0 := g.cellOf(n.Origin())
	x1, y1 := g.cellOf(Point{n.X + n.Width, n.Y + EffectiveHeight(n.Node)})
	x1--
	y1--
	if x1 < x0+2 {
		x1 = x0 + 2
	}
	if y1 < y0+2 {
		y1 = y0 + 2
	}

	b, kind := plainBox, cellBorder
	if n.Selected {
		b, kind = selectedBox, cellSelected
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			switch {
			case y == y0 && x == x0:
				g.set(x, y, b.tl, kind, "")
			case y == y0 && x == x1:
				g.set(x, y, b.tr, kind, "")
			case y == y1 && x == x0:
				g.set(x, y, b.bl, kind, "")
			case y == y1 && x == x1:
				g.set(x, y, b.br, kind, "")
			case y == y0 || y == y1:
				g.set(x, y, b.h, kind, "")
			case x == x0 || x == x1:
				g.set(x, y, b.v, kind, "")
			default:
				g.set(x, y, ' ', cellBlank, "")
			}
		}
	}

	inner := x1 - x0 - 1
	marker := "▾ "
	if n.Collapsed {
		marker = "▸ "
	}
	g.text(x0+1, y0+1, inner, marker+n.Title, cellTitle, n.TitleColor)
	if n.Collapsed || n.Description == "" {
		return
	}

	_, headerEnd := g.cellOf(Point{n.X, n.Y + headerHeight})
	sep := headerEnd
	if sep <= y0+1 {
		sep = y0 + 2
	}
	if sep >= y1 {
		return
	}
	g.set(x0, sep, '├', kind, "")
	g.set(x1, sep, '┤', kind, "")
	for x := x0 + 1; x < x1; x++ {
		g.set(x, sep, '─', kind, "")
	}
	lines := strings.Split(wordwrap.String(n.Description, inner), "\n")
	for i, line := range lines {
		y := sep + 1 + i
		if y >= y1 {
			break
		}
		g.text(x0+1, y, inner, line, cellText, "")
	}
}

// line walks the cells from a to b with Bresenham's algorithm.
func (g *Grid) line(ax, ay, bx, by int, fn func(x, y int)) {
	dx, dy := absInt(bx-ax), -absInt(by-ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	err := dx + dy
	for {
		fn(ax, ay)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			ax += sx
		}
		if e2 <= dx {
			err += dx
			ay += sy
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func strokeRune(dx, dy int) rune {
	switch {
	case dy == 0 || absInt(dx) > 2*absInt(dy):
		return '─'
	case dx == 0 || absInt(dy) > 2*absInt(dx):
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// arrowRune points into the node at the given side.
func arrowRune(s Side) rune {
	switch s {
	case SideTop:
		return '▼'
	case SideBottom:
		return '▲'
	case SideLeft:
		return '▶'
	default:
		return '◀'
	}
}

func (g *Grid) drawEdge(e SceneEdge) {
	kind := cellEdge
	if e.Selected {
		kind = cellEdgeSelected
	}
	ax, ay := g.cellOf(e.Start.Point)
	bx, by := g.cellOf(e.End.Point)
	r := strokeRune(bx-ax, by-ay)
	// The end cell sits on the target's border, so the tip goes one short.
	tipX, tipY := ax, ay
	g.line(ax, ay, bx, by, func(x, y int) {
		g.set(x, y, r, kind, "")
		if x != bx || y != by {
			tipX, tipY = x, y
		}
	})
	g.set(tipX, tipY, arrowRune(e.End.Side), kind, "")
	if e.Label != "" {
		mx, my := g.cellOf(Midpoint(e.Start.Point, e.End.Point))
		label := " " + e.Label + " "
		g.text(mx-len([]rune(label))/2, my, g.cols, label, cellLabel, "")
	}
}

func (g *Grid) drawPending(p PendingConnection) {
	end, kind, tip := p.Current, cellPending, '○'
	if p.Snap != nil {
		end, kind, tip = p.Snap.Handle.Point, cellSnapped, '◉'
	}
	ax, ay := g.cellOf(p.Source.Point)
	bx, by := g.cellOf(end)
	step := 0
	g.line(ax, ay, bx, by, func(x, y int) {
		if step%2 == 0 {
			g.set(x, y, '·', kind, "")
		}
		step++
	})
	g.set(bx, by, tip, kind, "")
}

// Lines returns the grid as plain text with trailing blanks trimmed.
func (g *Grid) Lines() []string {
	out := make([]string, g.rows)
	for y, row := range g.cells {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.r)
		}
		out[y] = strings.TrimRight(b.String(), " ")
	}
	return out
}

// GridStyles colours each kind of cell in the terminal view.
type GridStyles struct {
	Border       lipgloss.Style
	Selected     lipgloss.Style
	Title        lipgloss.Style
	Text         lipgloss.Style
	Edge         lipgloss.Style
	EdgeSelected lipgloss.Style
	Label        lipgloss.Style
	Pending      lipgloss.Style
	Snapped      lipgloss.Style
	Handle       lipgloss.Style
}

func DefaultGridStyles() GridStyles {
	return GridStyles{
		Border:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		Selected:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		Title:        lipgloss.NewStyle().Bold(true),
		Text:         lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Edge:         lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		EdgeSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Label:        lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Italic(true),
		Pending:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Snapped:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Handle:       lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

func (s GridStyles) of(c cell) lipgloss.Style {
	switch c.kind {
	case cellBorder:
		return s.Border
	case cellSelected:
		return s.Selected
	case cellTitle:
		if c.color != "" {
			return s.Title.Foreground(lipgloss.Color(c.color))
		}
		return s.Title
	case cellText:
		return s.Text
	case cellEdge:
		return s.Edge
	case cellEdgeSelected:
		return s.EdgeSelected
	case cellLabel:
		return s.Label
	case cellPending:
		return s.Pending
	case cellSnapped:
		return s.Snapped
	case cellHandle:
		return s.Handle
	}
	return lipgloss.NewStyle()
}

// View renders the grid with styles, one styled run per group of
// adjacent cells of the same kind.
func (g *Grid) View(styles GridStyles) string {
	var out strings.Builder
	for y, row := range g.cells {
		if y > 0 {
			out.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].kind == row[start].kind && row[x].color == row[start].color {
				continue
			}
			var run strings.Builder
			for _, c := range row[start:x] {
				run.WriteRune(c.r)
			}
			if row[start].kind == cellBlank {
				out.WriteString(run.String())
			} else {
				out.WriteString(styles.of(row[start]).Render(run.String()))
			}
			start = x
		}
	}
	return out.String()
}
