package engine

import (
	"encoding/json"
	"math"

	"github.com/siteview/siteview/backend-go/internal/document"
)

const (
	centerHandleSize  = 10.0
	stretchHandleSize = 10.0

	colorOutline  = "#000000"
	colorSelected = "#0000FF"
	colorEndpoint = "#FF0000"
	colorBend     = "#008000"
	colorStretch  = "#FFFF00"

	selectedFillOpacity = 170.0 / 255.0
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// All coordinates are already in screen space.
type DrawCommand struct {
	Op          string         `json:"op"`                    // "image", "path", "text", "handle"
	Ref         *document.Ref  `json:"ref,omitempty"`         // For hit correlation
	Path        []PathCommand  `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string         `json:"fill,omitempty"`        // Fill color
	Stroke      string         `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64        `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64        `json:"opacity,omitempty"`     // Fill alpha, 0 means opaque
	Rect        *Rect          `json:"rect,omitempty"`        // Destination of the background image
	At          document.Point `json:"at,omitempty"`          // Text origin or handle center
	Radius      float64        `json:"radius,omitempty"`      // Handle radius
	Text        string         `json:"text,omitempty"`
	Font        string         `json:"font,omitempty"`
	FontSize    float64        `json:"fontSize,omitempty"`
	Bold        bool           `json:"bold,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []interface{}

func moveTo(p document.Point) PathCommand { return PathCommand{"M", p.X, p.Y} }
func lineTo(p document.Point) PathCommand { return PathCommand{"L", p.X, p.Y} }
func closePath() PathCommand              { return PathCommand{"Z"} }
func curveTo(c1, c2, p document.Point) PathCommand {
	return PathCommand{"C", c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y}
}

// CompileDrawCommands generates the draw list for a document as seen through
// the viewport. Commands are in painter's order: image, phases, detectors, texts.
func CompileDrawCommands(doc *document.Document, vp Viewport, selected document.Ref) []DrawCommand {
	if doc == nil || vp.Image.Empty() {
		return nil
	}

	m := vp.Matrix()
	dest := vp.DestRect()
	sx, sy := m.ScaleFactors()
	unit := math.Min(sx, sy)

	commands := []DrawCommand{{Op: "image", Rect: &dest}}

	for i, p := range doc.Phases {
		ref := document.Ref{Collection: document.CollectionPhases, Index: i}
		compileLine(&commands, p, ref, ref == selected, m, unit)
	}
	for i, s := range doc.Detectors {
		ref := document.Ref{Collection: document.CollectionDetectors, Index: i}
		switch s.Kind {
		case document.KindLine:
			compileLine(&commands, s.Line, ref, ref == selected, m, unit)
		case document.KindSquare:
			compileSquare(&commands, s.Square, ref, ref == selected, m, sx, sy, unit)
		}
	}
	for i, t := range doc.Texts {
		ref := document.Ref{Collection: document.CollectionTexts, Index: i}
		compileText(&commands, t, ref, ref == selected, m, unit)
	}
	return commands
}

func outlineColor(selected bool) string {
	if selected {
		return colorSelected
	}
	return colorOutline
}

func compileLine(commands *[]DrawCommand, ln *document.LineShape, ref document.Ref, selected bool, m Matrix2D, unit float64) {
	if len(ln.Points) < 2 {
		return
	}
	color := outlineColor(selected)
	pen := math.Max(1, float64(ln.Thickness)*unit)

	pts := make([]document.Point, len(ln.Points))
	for i, p := range ln.Points {
		pts[i] = m.Apply(p)
	}

	path := []PathCommand{moveTo(pts[0])}
	for _, p := range pts[1:] {
		path = append(path, lineTo(p))
	}
	r := ref
	*commands = append(*commands, DrawCommand{Op: "path", Ref: &r, Path: path, Stroke: color, StrokeWidth: pen})

	tip := pts[len(pts)-1]
	from := pts[len(pts)-2]
	switch ln.Type {
	case document.Arrow:
		*commands = append(*commands, wedgeCommand(ArrowHead(from, tip, pen), color, pen))
	case document.PedCrossing:
		for _, w := range PedCrossingHeads(from, tip, pen) {
			*commands = append(*commands, wedgeCommand(w, color, pen))
		}
	case document.LeftArrow, document.RightArrow:
		stub := SideArrow(from, tip, pen, ln.Type == document.LeftArrow)
		*commands = append(*commands,
			DrawCommand{
				Op:          "path",
				Path:        []PathCommand{moveTo(stub.Start), curveTo(stub.Ctrl1, stub.Ctrl2, stub.End)},
				Stroke:      color,
				StrokeWidth: pen,
			},
			wedgeCommand(stub.Head, color, pen),
		)
	}

	if selected {
		size := centerHandleSize * unit
		*commands = append(*commands, handle(pts[0], colorEndpoint, size), handle(tip, colorEndpoint, size))
		for _, p := range pts[1 : len(pts)-1] {
			*commands = append(*commands, handle(p, colorBend, size))
		}
	}
}

func wedgeCommand(w Wedge, color string, pen float64) DrawCommand {
	return DrawCommand{
		Op:          "path",
		Path:        []PathCommand{moveTo(w.Left), lineTo(w.Apex), lineTo(w.Right), closePath()},
		Fill:        color,
		Stroke:      color,
		StrokeWidth: pen * 0.6,
	}
}

func compileSquare(commands *[]DrawCommand, sq *document.SquareShape, ref document.Ref, selected bool, m Matrix2D, sx, sy, unit float64) {
	c := m.Apply(document.Point{X: sq.X, Y: sq.Y})
	w := math.Max(8, sq.Width*sx)
	h := math.Max(8, sq.Height*sy)

	local := Translate(c.X, c.Y).Multiply(RotateDegrees(sq.Rotation))
	corners := []document.Point{
		local.Apply(document.Point{X: -w / 2, Y: -h / 2}),
		local.Apply(document.Point{X: w / 2, Y: -h / 2}),
		local.Apply(document.Point{X: w / 2, Y: h / 2}),
		local.Apply(document.Point{X: -w / 2, Y: h / 2}),
	}
	path := []PathCommand{moveTo(corners[0]), lineTo(corners[1]), lineTo(corners[2]), lineTo(corners[3]), closePath()}

	fill := sq.Fill.Hex()
	opacity := 0.0
	if selected {
		fill = colorSelected
		opacity = selectedFillOpacity
	}

	r := ref
	*commands = append(*commands, DrawCommand{
		Op:          "path",
		Ref:         &r,
		Path:        path,
		Fill:        fill,
		Opacity:     opacity,
		Stroke:      outlineColor(selected),
		StrokeWidth: math.Max(1, float64(sq.Thickness)*unit),
	})

	// The stretch corner is axis aligned, matching the hit test.
	*commands = append(*commands,
		handle(c, colorEndpoint, centerHandleSize*unit),
		handle(document.Point{X: c.X + w/2, Y: c.Y + h/2}, colorStretch, stretchHandleSize*unit*1.8),
	)
}

func compileText(commands *[]DrawCommand, t *document.TextShape, ref document.Ref, selected bool, m Matrix2D, unit float64) {
	at := m.Apply(document.Point{X: t.X, Y: t.Y})
	fill := t.Color.Hex()
	if selected {
		fill = colorSelected
	}
	r := ref
	*commands = append(*commands, DrawCommand{
		Op:       "text",
		Ref:      &r,
		At:       at,
		Text:     t.Text,
		Font:     t.FontName,
		FontSize: float64(t.Size) * unit,
		Bold:     t.Bold,
		Fill:     fill,
	})
	if selected {
		*commands = append(*commands, handle(at, colorEndpoint, centerHandleSize*unit))
	}
}

func handle(at document.Point, fill string, size float64) DrawCommand {
	return DrawCommand{Op: "handle", At: at, Radius: size / 2, Fill: fill, Stroke: colorOutline, StrokeWidth: 1}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
