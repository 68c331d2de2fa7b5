package codec

import (
	"io"
	"strconv"
	"strings"

	"github.com/siteview/siteview/backend-go/internal/document"
)

// Serialize renders the document as layout text. Sections are always
// written in the order image, phases, detectors, text, mappings.
func Serialize(doc *document.Document) string {
	var b strings.Builder

	b.WriteString("[image]\n")
	b.WriteString("file=")
	b.WriteString(quoteImage(doc.ImageFile))
	b.WriteString("\n\n")

	b.WriteString("[phases]\n")
	for _, p := range doc.Phases {
		writeLine(&b, p, "")
	}
	b.WriteString("\n")

	b.WriteString("[detectors]\n")
	for _, s := range doc.Detectors {
		switch s.Kind {
		case document.KindLine:
			writeLine(&b, s.Line, "line")
		case document.KindSquare:
			writeSquare(&b, s.Square)
		}
	}
	b.WriteString("\n")

	b.WriteString("[text]\n")
	for _, t := range doc.Texts {
		writeText(&b, t)
	}
	b.WriteString("\n")

	b.WriteString("[mappings]\n")
	if doc.Positions != nil {
		doc.Positions.Each(func(name string, pos int) {
			b.WriteString(name)
			b.WriteString("=")
			b.WriteString(strconv.Itoa(pos))
			b.WriteString("\n")
		})
	}
	return b.String()
}

// Write serializes doc to w.
func Write(w io.Writer, doc *document.Document) error {
	if _, err := io.WriteString(w, Serialize(doc)); err != nil {
		return &SerializationError{Err: err}
	}
	return nil
}

func writeLine(b *strings.Builder, l *document.LineShape, marker string) {
	if len(l.Points) < 2 {
		return
	}
	fields := []string{idField(l.ID)}
	if marker != "" {
		fields = append(fields, marker)
	}
	fields = append(fields,
		l.Type.String(),
		ftoa(l.Points[0].X), ftoa(l.Points[0].Y),
		ftoa(l.Points[1].X), ftoa(l.Points[1].Y),
		strconv.Itoa(l.Thickness),
	)
	for _, p := range l.Points[2:] {
		fields = append(fields, ftoa(p.X), ftoa(p.Y))
	}
	edited := "0"
	if l.TypeEdited {
		edited = "1"
	}
	fields = append(fields, "turn="+ftoa(l.TurnLength), "edited="+edited)

	b.WriteString(strings.Join(fields, ","))
	b.WriteString("\n")
}

func writeSquare(b *strings.Builder, s *document.SquareShape) {
	fields := []string{
		idField(s.ID), "square",
		ftoa(s.X), ftoa(s.Y), ftoa(s.Width), ftoa(s.Height),
		ftoa(s.Rotation), strconv.Itoa(s.Thickness),
	}
	if s.Fill != document.DefaultSquareFill {
		fields = append(fields, "fill="+s.Fill.Hex())
	}
	b.WriteString(strings.Join(fields, ","))
	b.WriteString("\n")
}

func writeText(b *strings.Builder, t *document.TextShape) {
	bold := "False"
	if t.Bold {
		bold = "True"
	}
	fields := []string{
		textField(flatten(t.Label), true), textField(flatten(t.Text), false),
		ftoa(t.X), ftoa(t.Y),
		textField(flatten(t.FontName), false), strconv.Itoa(t.Size),
		bold, t.Color.Hex(),
	}
	b.WriteString(strings.Join(fields, ","))
	b.WriteString("\n")
}

// textField quotes a CSV field when it would not read back verbatim. A
// leading field that starts like a comment is quoted too.
func textField(s string, leading bool) string {
	needs := strings.ContainsAny(s, ",\"") || s != strings.TrimSpace(s)
	if leading && (strings.HasPrefix(s, "#") || strings.HasPrefix(s, ";")) {
		needs = true
	}
	if !needs {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func idField(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "-"
	}
	return id
}

// flatten keeps a text field on one physical line.
func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func quoteImage(name string) string {
	if !strings.ContainsAny(name, " \"") {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
