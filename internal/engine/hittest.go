package engine

import (
	"math"
	"unicode/utf8"

	"github.com/siteview/siteview/backend-go/internal/document"
)

const (
	squareCornerReach = 18.0
	textCharWidth     = 0.6
)

// Hit is the result of a hit test. Vertex is the matched point index for
// line shapes, or -1 when only a segment (or a non-line shape) matched.
type Hit struct {
	Ref    document.Ref `json:"ref"`
	Vertex int          `json:"vertex"`
}

// HitTest finds the topmost shape under an image-space point. Texts are
// tested first, then detectors, then phases; within each collection the most
// recently added shape wins.
func HitTest(doc *document.Document, p document.Point, zoom float64) (Hit, bool) {
	if doc == nil {
		return Hit{Vertex: -1}, false
	}
	tol := HandleTolerance(zoom)

	for i := len(doc.Texts) - 1; i >= 0; i-- {
		if textContains(doc.Texts[i], p, tol) {
			return Hit{Ref: document.Ref{Collection: document.CollectionTexts, Index: i}, Vertex: -1}, true
		}
	}

	for i := len(doc.Detectors) - 1; i >= 0; i-- {
		ref := document.Ref{Collection: document.CollectionDetectors, Index: i}
		s := doc.Detectors[i]
		switch s.Kind {
		case document.KindLine:
			if idx, ok := nearLine(p, s.Line, tol); ok {
				return Hit{Ref: ref, Vertex: idx}, true
			}
		case document.KindSquare:
			if nearSquare(p, s.Square, tol) {
				return Hit{Ref: ref, Vertex: -1}, true
			}
		}
	}

	for i := len(doc.Phases) - 1; i >= 0; i-- {
		if idx, ok := nearLine(p, doc.Phases[i], tol); ok {
			return Hit{Ref: document.Ref{Collection: document.CollectionPhases, Index: i}, Vertex: idx}, true
		}
	}

	return Hit{Vertex: -1}, false
}

func textContains(t *document.TextShape, p document.Point, tol float64) bool {
	width := float64(utf8.RuneCountInString(t.Text)) * float64(t.Size) * textCharWidth
	height := float64(t.Size)
	return p.X >= t.X-tol && p.X <= t.X+width+tol &&
		p.Y >= t.Y-tol && p.Y <= t.Y+height+tol
}

// nearLine checks vertices before segments so that handles win over the
// line body.
func nearLine(p document.Point, l *document.LineShape, tol float64) (int, bool) {
	for i, v := range l.Points {
		if Distance(p, v) < tol {
			return i, true
		}
	}
	for i := 0; i < len(l.Points)-1; i++ {
		if Distance(p, ProjectPoint(p, l.Points[i], l.Points[i+1])) < tol {
			return -1, true
		}
	}
	return -1, false
}

func nearSquare(p document.Point, s *document.SquareShape, tol float64) bool {
	c := s.Corner()
	if math.Abs(p.X-c.X) <= squareCornerReach && math.Abs(p.Y-c.Y) <= squareCornerReach {
		return true
	}
	return math.Abs(p.X-s.X) <= s.Width/2+tol && math.Abs(p.Y-s.Y) <= s.Height/2+tol
}
