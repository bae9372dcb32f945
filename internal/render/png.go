// Package render rasterises diagrams to PNG.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/internal/core/shape"
)

const (
	DefaultPadding = 40.0
	minWidth       = 200
	minHeight      = 120
	arrowSize      = 8.0
	fontSize       = 12.0
)

// Options tunes the output image.
type Options struct {
	Padding float64
}

// PNG draws the diagram with shape-registry colours. Per-node
// properties.style fill and stroke override the registry.
func PNG(w io.Writer, d *diagram.Diagram, opts ...Options) error {
	if d == nil {
		return diagram.ErrNilDiagram
	}
	o := Options{Padding: DefaultPadding}
	if len(opts) > 0 && opts[0].Padding > 0 {
		o.Padding = opts[0].Padding
	}

	nodes := d.Nodes()
	minX, minY, maxX, maxY := extent(nodes)
	width := int(math.Ceil(maxX - minX + 2*o.Padding))
	height := int(math.Ceil(maxY - minY + 2*o.Padding))
	if width < minWidth {
		width = minWidth
	}
	if height < minHeight {
		height = minHeight
	}
	offX, offY := o.Padding-minX, o.Padding-minY

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{Size: fontSize, DPI: 72, Hinting: font.HintingFull}))

	// edges first so nodes sit on top
	for _, e := range d.Edges() {
		src, ok1 := d.Node(e.Source)
		dst, ok2 := d.Node(e.Target)
		if !ok1 || !ok2 {
			continue
		}
		drawEdge(dc, e, src, dst, offX, offY)
	}
	for _, n := range nodes {
		drawNode(dc, n, offX, offY)
	}

	return dc.EncodePNG(w)
}

func extent(nodes []*diagram.Node) (minX, minY, maxX, maxY float64) {
	if len(nodes) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		w, h := size(n)
		minX = math.Min(minX, n.X-w/2)
		minY = math.Min(minY, n.Y-h/2)
		maxX = math.Max(maxX, n.X+w/2)
		maxY = math.Max(maxY, n.Y+h/2)
	}
	return minX, minY, maxX, maxY
}

func size(n *diagram.Node) (float64, float64) {
	desc := shape.For(n.Type)
	w, h := n.Width, n.Height
	if w <= 0 {
		w = desc.Width
	}
	if h <= 0 {
		h = desc.Height
	}
	return w, h
}

func drawNode(dc *gg.Context, n *diagram.Node, offX, offY float64) {
	desc := shape.For(n.Type)
	fill, stroke := desc.Fill, desc.Stroke
	if style, ok := n.Properties["style"].(map[string]interface{}); ok {
		if v, ok := style["fill"].(string); ok && v != "" {
			fill = v
		}
		if v, ok := style["stroke"].(string); ok && v != "" {
			stroke = v
		}
	}

	cx, cy := n.X+offX, n.Y+offY
	w, h := size(n)
	switch desc.Geometry {
	case shape.GeometryCircle:
		dc.DrawCircle(cx, cy, math.Min(w, h)/2)
	case shape.GeometryDiamond:
		dc.MoveTo(cx, cy-h/2)
		dc.LineTo(cx+w/2, cy)
		dc.LineTo(cx, cy+h/2)
		dc.LineTo(cx-w/2, cy)
		dc.ClosePath()
	default:
		dc.DrawRectangle(cx-w/2, cy-h/2, w, h)
	}
	dc.SetHexColor(fill)
	dc.FillPreserve()
	dc.SetHexColor(stroke)
	dc.SetLineWidth(desc.StrokeWidth)
	dc.Stroke()

	if n.Text != "" {
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(n.Text, cx, cy, 0.5, 0.5)
	}
}

func drawEdge(dc *gg.Context, e *diagram.Edge, src, dst *diagram.Node, offX, offY float64) {
	points := make([]diagram.Point, 0, len(e.Waypoints)+2)
	if len(e.Waypoints) >= 2 {
		points = append(points, e.Waypoints...)
	} else {
		points = append(points, diagram.Point{X: src.X, Y: src.Y})
		points = append(points, e.Waypoints...)
		points = append(points, diagram.Point{X: dst.X, Y: dst.Y})
	}

	dc.SetColor(color.Gray{Y: 0x66})
	dc.SetLineWidth(1)
	dc.MoveTo(points[0].X+offX, points[0].Y+offY)
	for _, p := range points[1:] {
		dc.LineTo(p.X+offX, p.Y+offY)
	}
	dc.Stroke()

	last, prev := points[len(points)-1], points[len(points)-2]
	drawArrow(dc, prev.X+offX, prev.Y+offY, last.X+offX, last.Y+offY)

	if e.Text != "" {
		mid := points[len(points)/2]
		before := points[len(points)/2-1]
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(e.Text, (mid.X+before.X)/2+offX, (mid.Y+before.Y)/2+offY-4, 0.5, 1)
	}
}

func drawArrow(dc *gg.Context, fromX, fromY, toX, toY float64) {
	angle := math.Atan2(toY-fromY, toX-fromX)
	dc.MoveTo(toX, toY)
	dc.LineTo(toX-arrowSize*math.Cos(angle-math.Pi/6), toY-arrowSize*math.Sin(angle-math.Pi/6))
	dc.LineTo(toX-arrowSize*math.Cos(angle+math.Pi/6), toY-arrowSize*math.Sin(angle+math.Pi/6))
	dc.ClosePath()
	dc.Fill()
}
