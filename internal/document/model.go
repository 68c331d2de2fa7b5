package document

import "strings"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset returns p translated by (dx, dy).
func (p Point) Offset(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

type ArrowType int

const (
	NoArrow ArrowType = iota
	Arrow
	PedCrossing
	LeftArrow
	RightArrow
)

// ArrowTypes lists every arrow type in declaration order (used for menus).
var ArrowTypes = []ArrowType{NoArrow, Arrow, PedCrossing, LeftArrow, RightArrow}

// String returns the name used in layout files and by external exporters.
func (a ArrowType) String() string {
	switch a {
	case NoArrow:
		return "NoArrow"
	case Arrow:
		return "Arrow"
	case PedCrossing:
		return "PedCrossing"
	case LeftArrow:
		return "Left_Arrow"
	case RightArrow:
		return "Right_Arrow"
	default:
		return "Arrow"
	}
}

type ShapeKind string

const (
	KindLine   ShapeKind = "line"
	KindSquare ShapeKind = "square"
	KindText   ShapeKind = "text"
)

// LineShape is a directional polyline. Points[0] is the tail, the last point
// is the tip and anything in between is a bend point.
type LineShape struct {
	ID         string    `json:"id"`
	Type       ArrowType `json:"type"`
	Thickness  int       `json:"thickness"`
	TurnLength float64   `json:"turnLength"`
	TypeEdited bool      `json:"typeEdited"`
	Points     []Point   `json:"points"`
}

// Tip returns the last point of the line.
func (l *LineShape) Tip() Point {
	return l.Points[len(l.Points)-1]
}

// Translate moves every point of the line by (dx, dy).
func (l *LineShape) Translate(dx, dy float64) {
	for i := range l.Points {
		l.Points[i] = l.Points[i].Offset(dx, dy)
	}
}

type SquareShape struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation"`
	Thickness int     `json:"thickness"`
	Fill      Color   `json:"fill"`
}

// Corner returns the bottom-right resize corner (center + half extent).
func (s *SquareShape) Corner() Point {
	return Point{X: s.X + s.Width/2, Y: s.Y + s.Height/2}
}

// TextShape is a free text label. Label is the editorial name, Text is what
// gets drawn. ID is never meaningful for texts.
type TextShape struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontName string  `json:"fontName"`
	Size     int     `json:"size"`
	Bold     bool    `json:"bold"`
	Color    Color   `json:"color"`
}

// Shape is a tagged union over the three shape variants. Exactly one of
// Line, Square or Text is set, matching Kind.
type Shape struct {
	Kind   ShapeKind    `json:"kind"`
	Line   *LineShape   `json:"line,omitempty"`
	Square *SquareShape `json:"square,omitempty"`
	Text   *TextShape   `json:"text,omitempty"`
}

func LineOf(l *LineShape) Shape     { return Shape{Kind: KindLine, Line: l} }
func SquareOf(s *SquareShape) Shape { return Shape{Kind: KindSquare, Square: s} }
func TextOf(t *TextShape) Shape     { return Shape{Kind: KindText, Text: t} }

// ID returns the shape identifier ("" when unassigned).
func (s Shape) ID() string {
	switch s.Kind {
	case KindLine:
		return s.Line.ID
	case KindSquare:
		return s.Square.ID
	case KindText:
		return s.Text.ID
	}
	return ""
}

// Clone returns a fully independent deep copy. Text clones do not carry the
// identifier over; texts never have a meaningful one.
func (s Shape) Clone() Shape {
	switch s.Kind {
	case KindLine:
		l := *s.Line
		l.Points = make([]Point, len(s.Line.Points))
		copy(l.Points, s.Line.Points)
		return LineOf(&l)
	case KindSquare:
		sq := *s.Square
		return SquareOf(&sq)
	case KindText:
		t := *s.Text
		t.ID = ""
		return TextOf(&t)
	}
	return Shape{}
}

// Translate offsets the shape's geometry by (dx, dy).
func (s Shape) Translate(dx, dy float64) {
	switch s.Kind {
	case KindLine:
		s.Line.Translate(dx, dy)
	case KindSquare:
		s.Square.X += dx
		s.Square.Y += dy
	case KindText:
		s.Text.X += dx
		s.Text.Y += dy
	}
}

// NewLine creates a two point line with the editor defaults.
func NewLine(id string, tail, tip Point) *LineShape {
	return &LineShape{
		ID:         id,
		Type:       Arrow,
		Thickness:  DefaultLineThickness,
		TurnLength: DefaultTurnLength,
		Points:     []Point{tail, tip},
	}
}

// NewSquare creates a square detector centered at (x, y) with the editor defaults.
func NewSquare(id string, x, y float64) *SquareShape {
	return &SquareShape{
		ID:        id,
		X:         x,
		Y:         y,
		Width:     DefaultSquareSize,
		Height:    DefaultSquareSize,
		Thickness: DefaultSquareThickness,
		Fill:      DefaultSquareFill,
	}
}

// NewText creates a text label at (x, y). A blank label falls back to the default.
func NewText(label, text string, x, y float64, c Color) *TextShape {
	if strings.TrimSpace(label) == "" {
		label = DefaultTextLabel
	}
	return &TextShape{
		Label:    label,
		Text:     text,
		X:        x,
		Y:        y,
		FontName: DefaultFontName,
		Size:     DefaultFontSize,
		Color:    c,
	}
}
