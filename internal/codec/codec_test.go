package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteview/siteview/backend-go/internal/document"
)

func TestParseScenario(t *testing.T) {
	text := "[phases]\nA,Arrow,10,10,50,50,10,turn=35,edited=0\n" +
		"[detectors]\nD1,square,100,100,40,40,0,6\n" +
		"[text]\nLbl,Hi,5,5,Arial,18,False,#000000\n" +
		"[mappings]\nA=0\n"

	doc, err := Parse(text)
	require.NoError(t, err)

	require.Len(t, doc.Phases, 1)
	p := doc.Phases[0]
	assert.Equal(t, "A", p.ID)
	assert.Equal(t, []document.Point{{X: 10, Y: 10}, {X: 50, Y: 50}}, p.Points)
	assert.Equal(t, 10, p.Thickness)

	require.Len(t, doc.Detectors, 1)
	sq := doc.Detectors[0].Square
	require.NotNil(t, sq)
	assert.Equal(t, "D1", sq.ID)
	assert.Equal(t, 100.0, sq.X)
	assert.Equal(t, 100.0, sq.Y)
	assert.Equal(t, 40.0, sq.Width)
	assert.Equal(t, 40.0, sq.Height)

	require.Len(t, doc.Texts, 1)
	assert.Equal(t, map[string]int{"A": 0}, doc.Positions.ToMap())
}

func TestDetectorWithoutMarker(t *testing.T) {
	doc, err := Parse("[detectors]\nD2,left_arrow,0,0,10,0,8\n")
	require.NoError(t, err)
	require.Len(t, doc.Detectors, 1)

	d := doc.Detectors[0]
	require.Equal(t, document.KindLine, d.Kind)
	assert.Equal(t, document.LeftArrow, d.Line.Type)
	assert.Equal(t, 8, d.Line.Thickness)
	assert.Equal(t, []document.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, d.Line.Points)
}

func TestDetectorKinds(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   document.ArrowType
		points int
	}{
		{"line marker", "D,line,Right_Arrow,0,0,10,0,8", document.RightArrow, 2},
		{"arrow marker then type", "D,arrow,PedCrossing,0,0,10,0,8", document.PedCrossing, 2},
		{"type only", "D,NoArrow,0,0,10,0,8,20,20", document.NoArrow, 3},
		{"no type", "D,0,0,10,0,8", document.Arrow, 2},
		{"line marker no type", "D,line,0,0,10,0,8", document.Arrow, 2},
		{"unknown type", "D,wiggly,0,0,10,0,8", document.Arrow, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse("[detectors]\n" + tt.record + "\n")
			require.NoError(t, err)
			require.Len(t, doc.Detectors, 1)
			l := doc.Detectors[0].Line
			require.NotNil(t, l)
			assert.Equal(t, tt.want, l.Type)
			assert.Len(t, l.Points, tt.points)
		})
	}
}

func TestParseArrowSynonyms(t *testing.T) {
	tests := []struct {
		in   string
		want document.ArrowType
		ok   bool
	}{
		{"Arrow", document.Arrow, true},
		{"arrow", document.Arrow, true},
		{"NoArrow", document.NoArrow, true},
		{"no_arrow", document.NoArrow, true},
		{"PedCrossing", document.PedCrossing, true},
		{"ped-crossing", document.PedCrossing, true},
		{"Left_Arrow", document.LeftArrow, true},
		{"left_arrow", document.LeftArrow, true},
		{"left-arrow", document.LeftArrow, true},
		{"leftarrow", document.LeftArrow, true},
		{"LEFTARROW", document.LeftArrow, true},
		{" right_arrow ", document.RightArrow, true},
		{"RightArrow", document.RightArrow, true},
		{"sideways", document.Arrow, false},
		{"", document.Arrow, false},
		{"1", document.Arrow, false},
	}
	for _, tt := range tests {
		got, ok := ParseArrow(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLineTrailingTokens(t *testing.T) {
	doc, err := Parse("[phases]\n" +
		"A,Arrow,0,0,10,10,4,20,20,30,30,edited=1,turn=12.5\n" +
		"B,Arrow,0,0,10,10,4,20,20,x=1,40,40,turn=7\n" +
		"C,Arrow,0,0,10,10,4,future=thing,edited=0\n")
	require.NoError(t, err)
	require.Len(t, doc.Phases, 3)

	a := doc.Phases[0]
	assert.Len(t, a.Points, 4)
	assert.True(t, a.TypeEdited)
	assert.Equal(t, 12.5, a.TurnLength)

	// Bend pairs stop at the first token that is not a numeric pair.
	b := doc.Phases[1]
	assert.Len(t, b.Points, 3)
	assert.Equal(t, 7.0, b.TurnLength)

	c := doc.Phases[2]
	assert.Len(t, c.Points, 2)
	assert.Equal(t, document.DefaultTurnLength, c.TurnLength)
	assert.False(t, c.TypeEdited)
}

func TestRecordTolerance(t *testing.T) {
	doc, skipped, err := ParseDetailed(strings.NewReader(strings.Join([]string{
		"# comment",
		"; another",
		"stray line",
		"[image]",
		`file="my site.png"`,
		"[phases]",
		"A,Arrow,0,0,10",
		"B,Arrow,0,0,x,10,5",
		"C,Arrow,0,0,10,10,5",
		"[detectors]",
		"D1,square,1,2,3",
		"[text]",
		"only,three,fields",
		`lbl,txt,1,2,Arial,big,False,#000000`,
		"[mappings]",
		"noequals",
		"A=one",
		"C=3",
		"[other]",
		"whatever",
	}, "\n")))
	require.NoError(t, err)

	assert.Equal(t, "my site.png", doc.ImageFile)
	require.Len(t, doc.Phases, 1)
	assert.Equal(t, "C", doc.Phases[0].ID)
	assert.Empty(t, doc.Detectors)
	assert.Empty(t, doc.Texts)
	assert.Equal(t, map[string]int{"C": 3}, doc.Positions.ToMap())

	lines := make([]int, 0, len(skipped))
	for _, s := range skipped {
		lines = append(lines, s.Line)
	}
	assert.Equal(t, []int{3, 7, 8, 11, 13, 14, 16, 17, 20}, lines)
}

func TestUnassignedID(t *testing.T) {
	doc, err := Parse("[phases]\n-,Arrow,0,0,10,10,5\n[detectors]\n-,square,1,1,8,8,0,2\n")
	require.NoError(t, err)
	assert.Equal(t, "", doc.Phases[0].ID)
	assert.Equal(t, "", doc.Detectors[0].ID())

	out := Serialize(doc)
	assert.Contains(t, out, "-,Arrow,0,0,10,10,5,turn=35,edited=0")
	assert.Contains(t, out, "-,square,1,1,8,8,0,2")
}

func TestMappingsLastWins(t *testing.T) {
	doc, err := Parse("[mappings]\nA=1\nb=2\na=5\n")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Positions.Len())
	pos, ok := doc.Positions.Get("A")
	require.True(t, ok)
	assert.Equal(t, 5, pos)
}

func TestSquareRotationWraps(t *testing.T) {
	doc, err := Parse("[detectors]\nD,square,0,0,10,10,-90,1\nE,square,0,0,10,10,720.5,1\n")
	require.NoError(t, err)
	assert.Equal(t, 270.0, doc.Detectors[0].Square.Rotation)
	assert.InDelta(t, 0.5, doc.Detectors[1].Square.Rotation, 1e-9)
}

func TestInvalidUTF8IsStructural(t *testing.T) {
	_, err := Parse("[phases]\nA,Arrow,0,0,1,1,1\n\xc3\x28\n")
	var perr *LayoutParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestOverlongLineIsStructural(t *testing.T) {
	_, err := Parse("[text]\n" + strings.Repeat("x", MaxLineLength+1) + "\n")
	var perr *LayoutParseError
	require.ErrorAs(t, err, &perr)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailure(t *testing.T) {
	err := Write(failingWriter{}, document.NewSampleDocument())
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	assert.EqualError(t, serr.Unwrap(), "disk full")
}

func TestSerializeSections(t *testing.T) {
	out := Serialize(document.NewDocument())
	assert.Equal(t, "[image]\nfile=layout.png\n\n[phases]\n\n[detectors]\n\n[text]\n\n[mappings]\n", out)
}

func roundTrip(t *testing.T, doc *document.Document) *document.Document {
	t.Helper()
	back, skipped, err := ParseDetailed(strings.NewReader(Serialize(doc)))
	require.NoError(t, err)
	require.Empty(t, skipped)
	return back
}

func assertLine(t *testing.T, want, got *document.LineShape) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Thickness, got.Thickness)
	assert.InDelta(t, want.TurnLength, got.TurnLength, 1e-9)
	assert.Equal(t, want.TypeEdited, got.TypeEdited)
	require.Len(t, got.Points, len(want.Points))
	for i := range want.Points {
		assert.InDelta(t, want.Points[i].X, got.Points[i].X, 1e-9)
		assert.InDelta(t, want.Points[i].Y, got.Points[i].Y, 1e-9)
	}
}

func TestRoundTripLines(t *testing.T) {
	tests := []struct {
		name string
		line *document.LineShape
	}{
		{"two points", &document.LineShape{ID: "A", Type: document.Arrow, Thickness: 10, TurnLength: 35,
			Points: []document.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}}},
		{"bends and edited", &document.LineShape{ID: "P1", Type: document.LeftArrow, Thickness: 4, TurnLength: 12.25, TypeEdited: true,
			Points: []document.Point{{X: 0.5, Y: 10}, {X: 100, Y: 10.75}, {X: 150, Y: 60}, {X: 200, Y: 61.125}}}},
		{"ped crossing", &document.LineShape{ID: "", Type: document.PedCrossing, Thickness: 30, TurnLength: 0,
			Points: []document.Point{{X: -5, Y: -5}, {X: 5, Y: 5}, {X: 9, Y: 1}}}},
		{"no arrow", &document.LineShape{ID: "D7", Type: document.NoArrow, Thickness: 2, TurnLength: 80,
			Points: []document.Point{{X: 10, Y: 10}, {X: 20, Y: 20}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.NewDocument()
			doc.AddPhase(tt.line)
			doc.AddDetector(document.LineOf(tt.line).Clone())

			back := roundTrip(t, doc)
			require.Len(t, back.Phases, 1)
			require.Len(t, back.Detectors, 1)
			assertLine(t, tt.line, back.Phases[0])
			require.Equal(t, document.KindLine, back.Detectors[0].Kind)
			assertLine(t, tt.line, back.Detectors[0].Line)
		})
	}
}

func TestRoundTripSquares(t *testing.T) {
	tests := []struct {
		name string
		sq   *document.SquareShape
	}{
		{"defaults", document.NewSquare("D1", 100, 100)},
		{"rotated and filled", &document.SquareShape{ID: "D2", X: 12.5, Y: 40, Width: 33, Height: 90.5,
			Rotation: 287.5, Thickness: 3, Fill: document.Color{R: 200, G: 16, B: 8}}},
		{"unassigned", &document.SquareShape{X: 1, Y: 1, Width: 8, Height: 8, Thickness: 1, Fill: document.Black}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.NewDocument()
			doc.AddDetector(document.SquareOf(tt.sq))

			back := roundTrip(t, doc)
			require.Len(t, back.Detectors, 1)
			got := back.Detectors[0].Square
			require.NotNil(t, got)
			assert.Equal(t, tt.sq.ID, got.ID)
			assert.InDelta(t, tt.sq.X, got.X, 1e-9)
			assert.InDelta(t, tt.sq.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.sq.Width, got.Width, 1e-9)
			assert.InDelta(t, tt.sq.Height, got.Height, 1e-9)
			assert.InDelta(t, tt.sq.Rotation, got.Rotation, 1e-9)
			assert.Equal(t, tt.sq.Thickness, got.Thickness)
			assert.Equal(t, tt.sq.Fill, got.Fill)
		})
	}
}

func TestRoundTripTexts(t *testing.T) {
	tests := []struct {
		name  string
		label string
		text  string
	}{
		{"plain", "Lbl", "North approach"},
		{"comma and quote", `Stage "A", main`, `say "hi", then go`},
		{"hash label", "#1 Main", "first"},
		{"semicolon label", ";note", "second"},
		{"section-like label", "[x]", "third"},
		{"hash text", "Lbl", "#not a comment"},
		{"surrounding spaces", "  padded ", " lead and trail  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.NewDocument()
			want := document.NewText(tt.label, tt.text, 15.5, 30, document.Color{R: 10, G: 20, B: 30})
			want.Bold = true
			want.Size = 24
			doc.AddText(want)

			back := roundTrip(t, doc)
			require.Len(t, back.Texts, 1)
			got := back.Texts[0]
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.text, got.Text)
			assert.InDelta(t, want.X, got.X, 1e-9)
			assert.InDelta(t, want.Y, got.Y, 1e-9)
			assert.Equal(t, want.FontName, got.FontName)
			assert.Equal(t, want.Size, got.Size)
			assert.True(t, got.Bold)
			assert.Equal(t, want.Color, got.Color)
		})
	}
}

func TestUnquotedTextFieldsAreTrimmed(t *testing.T) {
	doc, err := Parse("[text]\n Lbl , Hi there ,5,5,Arial,18,False,#000000\n")
	require.NoError(t, err)
	require.Len(t, doc.Texts, 1)
	assert.Equal(t, "Lbl", doc.Texts[0].Label)
	assert.Equal(t, "Hi there", doc.Texts[0].Text)
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"A", "P1", "", "-", "D 1"} {
		assert.NoError(t, ValidateID(id), id)
	}
	for _, id := range []string{"#2", " ;x", "a,b"} {
		assert.ErrorIs(t, ValidateID(id), ErrInvalidID, id)
	}
}
