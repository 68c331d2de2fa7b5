package codec

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/siteview/siteview/backend-go/internal/document"
)

// MaxLineLength bounds a single physical line of layout text.
const MaxLineLength = 1 << 20

// Skipped describes a record the parser dropped.
type Skipped struct {
	Line    int    `json:"line"`
	Section string `json:"section"`
	Text    string `json:"text"`
	Reason  string `json:"reason"`
}

// Parse reads layout text into a fresh document.
func Parse(text string) (*document.Document, error) {
	doc, _, err := ParseDetailed(strings.NewReader(text))
	return doc, err
}

// ParseReader is Parse over a reader.
func ParseReader(r io.Reader) (*document.Document, error) {
	doc, _, err := ParseDetailed(r)
	return doc, err
}

// ParseDetailed parses layout text and also reports every record it skipped.
// On error the returned document is nil; the caller's current document is
// never touched, so a failed load leaves the editor as it was.
func ParseDetailed(r io.Reader) (*document.Document, []Skipped, error) {
	doc := document.NewDocument()
	var skipped []Skipped

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	section := ""
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if !utf8.ValidString(raw) {
			return nil, nil, &LayoutParseError{Line: lineNo, Err: errors.New("invalid UTF-8")}
		}
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}

		var reason string
		switch section {
		case "image":
			reason = parseImage(doc, line)
		case "phases":
			var l *document.LineShape
			l, reason = parseLineRecord(splitFields(line), false)
			if l != nil {
				doc.AddPhase(l)
			}
		case "detectors":
			var s document.Shape
			s, reason = parseDetector(line)
			if reason == "" {
				doc.AddDetector(s)
			}
		case "text":
			var t *document.TextShape
			t, reason = parseText(line)
			if t != nil {
				doc.AddText(t)
			}
		case "mappings":
			reason = parseMapping(doc.Positions, line)
		case "":
			reason = "record outside any section"
		default:
			reason = fmt.Sprintf("unknown section %q", section)
		}
		if reason != "" {
			skipped = append(skipped, Skipped{Line: lineNo, Section: section, Text: line, Reason: reason})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, &LayoutParseError{Line: lineNo + 1, Err: err}
	}
	return doc, skipped, nil
}

func parseImage(doc *document.Document, line string) string {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return "expected key=value"
	}
	if !strings.EqualFold(strings.TrimSpace(key), "file") {
		return fmt.Sprintf("unknown image key %q", strings.TrimSpace(key))
	}
	val = strings.TrimSpace(val)
	if len(val) >= 2 && strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
		val = strings.ReplaceAll(val[1:len(val)-1], `""`, `"`)
	}
	doc.ImageFile = val
	return ""
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseDetector decides between a square and a line detector. The second
// field is either "square", a "line" marker, an arrow marker followed by the
// real arrow type, or the arrow type itself.
func parseDetector(line string) (document.Shape, string) {
	parts := splitFields(line)
	if len(parts) < 2 {
		return document.Shape{}, "too few fields"
	}
	if strings.EqualFold(parts[1], "square") {
		sq, reason := parseSquare(parts)
		if sq == nil {
			return document.Shape{}, reason
		}
		return document.SquareOf(sq), ""
	}
	l, reason := parseLineRecord(parts, true)
	if l == nil {
		return document.Shape{}, reason
	}
	return document.LineOf(l), ""
}

func hasMarker(parts []string) bool {
	if strings.EqualFold(parts[1], "line") {
		return true
	}
	if _, ok := ParseArrow(parts[1]); !ok || len(parts) < 3 {
		return false
	}
	_, numeric := parseFloat(parts[2])
	return !numeric
}

// parseLineRecord reads id,[marker,]type,x1,y1,x2,y2,thickness followed by
// optional bend pairs and turn=/edited= tokens.
func parseLineRecord(parts []string, detector bool) (*document.LineShape, string) {
	if len(parts) < 2 {
		return nil, "too few fields"
	}
	idx := 1
	if detector && hasMarker(parts) {
		idx++
	}

	at := document.Arrow
	if v, ok := ParseArrow(parts[idx]); ok {
		at = v
		idx++
	} else if _, numeric := parseFloat(parts[idx]); !numeric || !detector {
		// Unknown type tokens fall back to Arrow. Only detector records may
		// leave the type out entirely.
		idx++
	}

	if len(parts)-idx < 5 {
		return nil, "line record needs at least 7 fields"
	}
	var core [4]float64
	for i := range core {
		v, ok := parseFloat(parts[idx+i])
		if !ok {
			return nil, fmt.Sprintf("bad coordinate %q", parts[idx+i])
		}
		core[i] = v
	}
	thick, ok := parseInt(parts[idx+4])
	if !ok {
		return nil, fmt.Sprintf("bad thickness %q", parts[idx+4])
	}
	idx += 5

	l := document.NewLine(idValue(parts[0]),
		document.Point{X: core[0], Y: core[1]},
		document.Point{X: core[2], Y: core[3]})
	l.Type = at
	l.Thickness = thick

	for idx+1 < len(parts) {
		x, okX := parseFloat(parts[idx])
		y, okY := parseFloat(parts[idx+1])
		if !okX || !okY {
			break
		}
		l.Points = append(l.Points, document.Point{X: x, Y: y})
		idx += 2
	}

	for _, tok := range parts[idx:] {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "turn":
			if v, ok := parseFloat(val); ok {
				l.TurnLength = v
			}
		case "edited":
			l.TypeEdited = parseFlag(val)
		}
	}
	return l, ""
}

func parseSquare(parts []string) (*document.SquareShape, string) {
	if len(parts) < 8 {
		return nil, "square record needs 8 fields"
	}
	var v [5]float64
	for i := range v {
		f, ok := parseFloat(parts[2+i])
		if !ok {
			return nil, fmt.Sprintf("bad square field %q", parts[2+i])
		}
		v[i] = f
	}
	thick, ok := parseInt(parts[7])
	if !ok {
		return nil, fmt.Sprintf("bad thickness %q", parts[7])
	}

	sq := document.NewSquare(idValue(parts[0]), v[0], v[1])
	sq.Width = v[2]
	sq.Height = v[3]
	sq.Rotation = document.WrapDegrees(v[4])
	sq.Thickness = thick

	for _, tok := range parts[8:] {
		key, val, ok := strings.Cut(tok, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "fill") {
			if c, err := document.ParseColor(val); err == nil {
				sq.Fill = c
			}
		}
	}
	return sq, ""
}

func quotedField(r *csv.Reader, line string, i int) bool {
	_, col := r.FieldPos(i)
	return col >= 1 && col <= len(line) && line[col-1] == '"'
}

func parseText(line string) (*document.TextShape, string) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Sprintf("bad CSV: %v", err)
	}
	if len(fields) < 8 {
		return nil, "text record needs 8 fields"
	}
	// Quoted label and text keep their surrounding spaces.
	for i := range fields {
		if i <= 1 && quotedField(r, line, i) {
			continue
		}
		fields[i] = strings.TrimSpace(fields[i])
	}

	x, okX := parseFloat(fields[2])
	y, okY := parseFloat(fields[3])
	if !okX || !okY {
		return nil, "bad text position"
	}
	size, ok := parseInt(fields[5])
	if !ok {
		return nil, fmt.Sprintf("bad font size %q", fields[5])
	}
	bold, err := strconv.ParseBool(strings.ToLower(fields[6]))
	if err != nil {
		return nil, fmt.Sprintf("bad bold flag %q", fields[6])
	}
	color, err := document.ParseColor(fields[7])
	if err != nil {
		color = document.Black
	}

	return &document.TextShape{
		Label:    fields[0],
		Text:     fields[1],
		X:        x,
		Y:        y,
		FontName: fields[4],
		Size:     size,
		Bold:     bold,
		Color:    color,
	}, ""
}

func parseMapping(m *document.Mappings, line string) string {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return "expected name=position"
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "empty mapping name"
	}
	pos, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fmt.Sprintf("bad position %q", strings.TrimSpace(val))
	}
	m.Set(key, pos)
	return ""
}

func idValue(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseInt accepts plain integers and integral-looking floats ("10.0").
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, ok := parseFloat(s)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

func parseFlag(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || strings.EqualFold(s, "true")
}
