package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// ErrEmptyCanvas is returned when an export has nothing to draw.
var ErrEmptyCanvas = errors.New("nothing to export")

// ImageFormat is an export target chosen by file extension.
type ImageFormat int

const (
	FormatPNG ImageFormat = iota
	FormatSVG
	FormatTXT
)

func (f ImageFormat) String() string {
	switch f {
	case FormatSVG:
		return "svg"
	case FormatTXT:
		return "txt"
	}
	return "png"
}

func formatForPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return FormatSVG
	case ".txt":
		return FormatTXT
	}
	return FormatPNG
}

// EncodeImage renders scene in the given format at the scene's viewport
// size. TXT output uses the terminal cell size from display.
func EncodeImage(scene Scene, format ImageFormat, display DisplayConfig) ([]byte, error) {
	if len(scene.Nodes) == 0 {
		return nil, ErrEmptyCanvas
	}
	if scene.Viewport.W <= 0 || scene.Viewport.H <= 0 {
		scene.Viewport = Size{W: float64(display.ExportWidth), H: float64(display.ExportHeight)}
	}
	switch format {
	case FormatSVG:
		return RenderSVG(scene)
	case FormatTXT:
		cols := int(scene.Viewport.W / display.CellWidth)
		rows := int(scene.Viewport.H / display.CellHeight)
		lines := RenderGrid(scene, cols, rows, display.CellWidth, display.CellHeight).Lines()
		return []byte(strings.Join(lines, "\n") + "\n"), nil
	}
	return RenderPNG(scene)
}

const (
	exportFontSize  = 13.0
	exportArrowSize = 10.0
	exportPadding   = 8.0
)

var (
	exportBackground = color.White
	exportInk        = color.Black
	exportSelected   = color.RGBA{0x1e, 0x88, 0xe5, 0xff}
	exportHeader     = color.RGBA{0xf1, 0xf3, 0xf5, 0xff}
	exportPending    = color.RGBA{0x90, 0x90, 0x90, 0xff}
	exportSnapped    = color.RGBA{0x2e, 0x9d, 0x4f, 0xff}
)

func loadExportFace(size float64) (font.Face, error) {
	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return truetype.NewFace(ttfFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// RenderPNG rasterizes scene as seen through its camera.
func RenderPNG(scene Scene) ([]byte, error) {
	w := int(math.Ceil(scene.Viewport.W))
	h := int(math.Ceil(scene.Viewport.H))
	dc := gg.NewContext(w, h)
	dc.SetColor(exportBackground)
	dc.Clear()

	face, err := loadExportFace(exportFontSize * scene.Camera.Scale)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)

	cam := scene.Camera
	for _, e := range scene.Edges {
		drawEdgePNG(dc, cam, e)
	}
	if scene.Pending != nil {
		drawPendingPNG(dc, cam, *scene.Pending)
	}
	for _, n := range scene.Nodes {
		drawNodePNG(dc, cam, n)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawEdgePNG(dc *gg.Context, cam Camera, e SceneEdge) {
	a := cam.CanvasToScreen(e.Start.Point)
	b := cam.CanvasToScreen(e.End.Point)
	ink := color.Color(exportInk)
	width := 1.5
	if e.Selected {
		ink, width = exportSelected, 2.5
	}
	dc.SetColor(ink)
	dc.SetLineWidth(width)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()
	drawArrowPNG(dc, a, b, exportArrowSize*cam.Scale)

	if e.Label != "" {
		m := Midpoint(a, b)
		tw, th := dc.MeasureString(e.Label)
		dc.SetColor(exportBackground)
		dc.DrawRectangle(m.X-tw/2-3, m.Y-th/2-3, tw+6, th+6)
		dc.Fill()
		dc.SetColor(ink)
		dc.DrawStringAnchored(e.Label, m.X, m.Y, 0.5, 0.5)
	}
}

func drawArrowPNG(dc *gg.Context, from, to Point, size float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length
	const spread = 0.5
	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-size*dx+size*dy*spread, to.Y-size*dy-size*dx*spread)
	dc.LineTo(to.X-size*dx-size*dy*spread, to.Y-size*dy+size*dx*spread)
	dc.ClosePath()
	dc.Fill()
}

func drawPendingPNG(dc *gg.Context, cam Camera, p PendingConnection) {
	end, ink := p.Current, color.Color(exportPending)
	if p.Snap != nil {
		end, ink = p.Snap.Handle.Point, exportSnapped
	}
	a := cam.CanvasToScreen(p.Source.Point)
	b := cam.CanvasToScreen(end)
	dc.SetColor(ink)
	dc.SetLineWidth(1.5)
	dc.SetDash(6, 4)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()
	dc.SetDash()
	dc.DrawCircle(b.X, b.Y, 4)
	dc.Fill()
}

func drawNodePNG(dc *gg.Context, cam Camera, n SceneNode) {
	o := cam.CanvasToScreen(n.Origin())
	w := n.Width * cam.Scale
	h := EffectiveHeight(n.Node) * cam.Scale
	header := math.Min(headerHeight*cam.Scale, h)
	pad := exportPadding * cam.Scale

	dc.SetColor(exportBackground)
	dc.DrawRectangle(o.X, o.Y, w, h)
	dc.Fill()
	dc.SetColor(exportHeader)
	dc.DrawRectangle(o.X, o.Y, w, header)
	dc.Fill()

	border, width := color.Color(exportInk), 1.0
	if n.Selected {
		border, width = exportSelected, 2.5
	}
	dc.SetColor(border)
	dc.SetLineWidth(width)
	dc.DrawRectangle(o.X, o.Y, w, h)
	dc.Stroke()
	if !n.Collapsed {
		dc.DrawLine(o.X, o.Y+header, o.X+w, o.Y+header)
		dc.Stroke()
	}

	dc.SetColor(exportInk)
	if n.TitleColor != "" {
		dc.SetHexColor(n.TitleColor)
	}
	dc.DrawStringAnchored(fitString(dc, n.Title, w-2*pad), o.X+pad, o.Y+header/2, 0, 0.5)

	if n.Collapsed || n.Description == "" {
		return
	}
	dc.SetColor(exportInk)
	cellW, lineH := dc.MeasureString("M")
	lineH *= 1.4
	cols := int((w - 2*pad) / math.Max(cellW, 1))
	y := o.Y + header + pad + lineH/2
	for _, line := range strings.Split(wordwrap.String(n.Description, cols), "\n") {
		if y > o.Y+h-pad {
			break
		}
		dc.DrawStringAnchored(fitString(dc, line, w-2*pad), o.X+pad, y, 0, 0.5)
		y += lineH
	}
}

// fitString trims s until it fits in width, marking the cut with an
// ellipsis.
func fitString(dc *gg.Context, s string, width float64) string {
	if tw, _ := dc.MeasureString(s); tw <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		cand := string(runes) + "…"
		if tw, _ := dc.MeasureString(cand); tw <= width {
			return cand
		}
	}
	return ""
}

// RenderSVG draws scene as an SVG document of the viewport size.
func RenderSVG(scene Scene) ([]byte, error) {
	var buf bytes.Buffer
	w := int(math.Ceil(scene.Viewport.W))
	h := int(math.Ceil(scene.Viewport.H))
	cam := scene.Camera
	fontPx := int(math.Max(1, math.Round(exportFontSize*cam.Scale)))

	canvas := svg.New(&buf)
	canvas.Start(w, h)
	canvas.Def()
	canvas.Marker("arrow", 10, 5, 10, 10, `orient="auto" markerUnits="userSpaceOnUse"`)
	canvas.Path("M0,0 L10,5 L0,10 z", "fill:black")
	canvas.MarkerEnd()
	canvas.DefEnd()
	canvas.Rect(0, 0, w, h, "fill:white")

	for _, e := range scene.Edges {
		a := cam.CanvasToScreen(e.Start.Point)
		b := cam.CanvasToScreen(e.End.Point)
		stroke := "stroke:black;stroke-width:1.5"
		if e.Selected {
			stroke = "stroke:#1e88e5;stroke-width:2.5"
		}
		canvas.Line(int(a.X), int(a.Y), int(b.X), int(b.Y), stroke, `marker-end="url(#arrow)"`)
		if e.Label != "" {
			m := Midpoint(a, b)
			canvas.Text(int(m.X), int(m.Y), e.Label,
				fmt.Sprintf("font-family:monospace;font-size:%dpx;text-anchor:middle;dominant-baseline:middle;paint-order:stroke;stroke:white;stroke-width:4", fontPx))
		}
	}
	if p := scene.Pending; p != nil {
		end, stroke := p.Current, "stroke:#909090"
		if p.Snap != nil {
			end, stroke = p.Snap.Handle.Point, "stroke:#2e9d4f"
		}
		a := cam.CanvasToScreen(p.Source.Point)
		b := cam.CanvasToScreen(end)
		canvas.Line(int(a.X), int(a.Y), int(b.X), int(b.Y), stroke+";stroke-width:1.5;stroke-dasharray:6,4")
	}

	for _, n := range scene.Nodes {
		o := cam.CanvasToScreen(n.Origin())
		nw := int(n.Width * cam.Scale)
		nh := int(EffectiveHeight(n.Node) * cam.Scale)
		header := int(math.Min(headerHeight*cam.Scale, float64(nh)))
		pad := int(exportPadding * cam.Scale)
		stroke := "stroke:black;stroke-width:1"
		if n.Selected {
			stroke = "stroke:#1e88e5;stroke-width:2.5"
		}
		canvas.Gid(n.ID)
		canvas.Rect(int(o.X), int(o.Y), nw, nh, "fill:white;"+stroke)
		canvas.Rect(int(o.X), int(o.Y), nw, header, "fill:#f1f3f5;"+stroke)
		titleFill := "black"
		if n.TitleColor != "" {
			titleFill = n.TitleColor
		}
		canvas.Text(int(o.X)+pad, int(o.Y)+header/2, n.Title,
			fmt.Sprintf("font-family:monospace;font-weight:bold;font-size:%dpx;dominant-baseline:middle;fill:%s", fontPx, titleFill))
		if !n.Collapsed && n.Description != "" {
			cols := (nw - 2*pad) * 10 / (fontPx * 6)
			lineH := fontPx * 14 / 10
			y := int(o.Y) + header + pad + lineH/2
			for _, line := range strings.Split(wordwrap.String(n.Description, cols), "\n") {
				if y > int(o.Y)+nh-pad {
					break
				}
				canvas.Text(int(o.X)+pad, y, line,
					fmt.Sprintf("font-family:monospace;font-size:%dpx;dominant-baseline:middle", fontPx))
				y += lineH
			}
		}
		canvas.Gend()
	}
	canvas.End()
	return buf.Bytes(), nil
}
