package engine

import (
	"strings"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/document"
)

func (e *Editor) selected() (document.Shape, error) {
	if e.pending != nil {
		return document.Shape{}, ErrInputPending
	}
	s, ok := e.doc.Shape(e.selection)
	if !ok {
		return document.Shape{}, ErrNoSelection
	}
	return s, nil
}

// Copy places a deep copy of the selection on the clipboard.
func (e *Editor) Copy() error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	c := s.Clone()
	e.clipboard = &c
	e.clipboardFrom = e.selection.Collection
	return nil
}

// Paste inserts a fresh copy of the clipboard, offset from the original.
func (e *Editor) Paste() error {
	if e.pending != nil {
		return ErrInputPending
	}
	if e.clipboard == nil {
		return ErrClipboardEmpty
	}
	c := e.clipboard.Clone()
	c.Translate(duplicateOffset, duplicateOffset)
	e.selection = e.insert(c, e.clipboardFrom)
	e.changed()
	return nil
}

// DuplicateSelected clones the selection next to itself. Texts ask for a
// new label and text first.
func (e *Editor) DuplicateSelected() error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind == document.KindText {
		e.ask(Request{
			Kind:    RequestText,
			Title:   "Duplicate Text",
			Label:   s.Text.Label,
			Text:    s.Text.Text,
			Color:   s.Text.Color,
			purpose: purposeDuplicateText,
			target:  e.selection,
		})
		return nil
	}
	c := s.Clone()
	c.Translate(duplicateOffset, duplicateOffset)
	e.selection = e.insert(c, e.selection.Collection)
	e.changed()
	return nil
}

// insert adds a copied shape. Lines go wherever their id says they belong;
// an id that names neither a known phase nor a known detector keeps the
// collection the copy came from.
func (e *Editor) insert(s document.Shape, from document.Collection) document.Ref {
	switch s.Kind {
	case document.KindLine:
		id := s.Line.ID
		switch {
		case id != "" && e.defs.IsPhase(id):
			return e.doc.AddPhase(s.Line)
		case id != "" && e.defs.IsDetector(id):
			return e.doc.AddDetector(s)
		case from == document.CollectionPhases:
			return e.doc.AddPhase(s.Line)
		default:
			return e.doc.AddDetector(s)
		}
	case document.KindSquare:
		return e.doc.AddDetector(s)
	default:
		return e.doc.AddText(s.Text)
	}
}

// DeleteSelected removes the selected shape and clears the selection.
func (e *Editor) DeleteSelected() error {
	if _, err := e.selected(); err != nil {
		return err
	}
	e.doc.Remove(e.selection)
	e.selection = document.Ref{}
	e.state = Idle
	e.vertex = -1
	e.changed()
	return nil
}

// InsertBendAt adds a vertex at p after the segment of the selected line
// nearest to p. The new vertex becomes the drag target.
func (e *Editor) InsertBendAt(p document.Point) error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind != document.KindLine {
		return ErrWrongShape
	}
	l := s.Line
	seg := NearestSegment(p, l.Points)
	if seg < 0 {
		return ErrWrongShape
	}
	l.Points = append(l.Points[:seg+1], append([]document.Point{p}, l.Points[seg+1:]...)...)
	e.vertex = seg + 1
	e.changed()
	return nil
}

// SetArrowType changes the selected line's arrow and pins it against
// imported defaults.
func (e *Editor) SetArrowType(at document.ArrowType) error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind != document.KindLine {
		return ErrWrongShape
	}
	s.Line.Type = at
	s.Line.TypeEdited = true
	e.changed()
	return nil
}

// AssignPhase gives the selection a phase role. Detector lines move to the
// phases; squares become a diagonal line across their box.
func (e *Editor) AssignPhase(id string) error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if err := codec.ValidateID(id); err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	switch s.Kind {
	case document.KindLine:
		l := s.Line
		l.ID = id
		e.defs.ApplyDefault(l)
		if e.selection.Collection == document.CollectionDetectors {
			e.doc.Remove(e.selection)
			e.selection = e.doc.AddPhase(l)
		}
	case document.KindSquare:
		sq := s.Square
		l := document.NewLine(id,
			document.Point{X: sq.X - sq.Width/2, Y: sq.Y - sq.Height/2},
			document.Point{X: sq.X + sq.Width/2, Y: sq.Y + sq.Height/2})
		l.Thickness = sq.Thickness
		e.defs.ApplyDefault(l)
		e.doc.Remove(e.selection)
		e.selection = e.doc.AddPhase(l)
	default:
		return ErrWrongShape
	}
	e.vertex = -1
	e.changed()
	return nil
}

// AssignDetector gives the selection a detector role, moving phase lines
// into the detectors.
func (e *Editor) AssignDetector(id string) error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if err := codec.ValidateID(id); err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	switch s.Kind {
	case document.KindLine:
		s.Line.ID = id
		if e.selection.Collection == document.CollectionPhases {
			e.doc.Remove(e.selection)
			e.selection = e.doc.AddDetector(s)
		}
	case document.KindSquare:
		s.Square.ID = id
	default:
		return ErrWrongShape
	}
	e.vertex = -1
	e.changed()
	return nil
}

// RequestAssignPhase asks the host to pick a phase for the selection.
func (e *Editor) RequestAssignPhase() error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind == document.KindText {
		return ErrWrongShape
	}
	if len(e.defs.Phases) == 0 {
		return ErrNoDefinitions
	}
	e.ask(Request{
		Kind:    RequestPick,
		Title:   "Select Phase",
		Choices: append([]string(nil), e.defs.Phases...),
		purpose: purposeAssignPhase,
		target:  e.selection,
	})
	return nil
}

// RequestAssignDetector asks the host to pick a detector for the selection.
func (e *Editor) RequestAssignDetector() error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind == document.KindText {
		return ErrWrongShape
	}
	if len(e.defs.Detectors) == 0 {
		return ErrNoDefinitions
	}
	e.ask(Request{
		Kind:    RequestPick,
		Title:   "Select Detector",
		Choices: e.defs.DetectorChoices(),
		purpose: purposeAssignDetector,
		target:  e.selection,
	})
	return nil
}

// RequestEditText asks the host for new label, text and colour of the
// selected text.
func (e *Editor) RequestEditText() error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind != document.KindText {
		return ErrWrongShape
	}
	e.ask(Request{
		Kind:    RequestText,
		Title:   "Edit Text",
		Label:   s.Text.Label,
		Text:    s.Text.Text,
		Color:   s.Text.Color,
		purpose: purposeEditText,
		target:  e.selection,
	})
	return nil
}

// RequestSquareColor asks the host for a new fill of the selected square.
func (e *Editor) RequestSquareColor() error {
	s, err := e.selected()
	if err != nil {
		return err
	}
	if s.Kind != document.KindSquare {
		return ErrWrongShape
	}
	e.ask(Request{
		Kind:    RequestColor,
		Title:   "Square Colour",
		Color:   s.Square.Fill,
		purpose: purposeSquareColor,
		target:  e.selection,
	})
	return nil
}

// DropDefinition places a shape for a name dragged in from the name lists.
// payload is "PHASE:<id>" or "DET:<id>"; screen is the drop point.
func (e *Editor) DropDefinition(payload string, screen document.Point) error {
	if e.pending != nil {
		return ErrInputPending
	}
	p, ok := e.vp.ScreenToImage(screen)
	if !ok {
		return ErrNoImage
	}

	kind, id, found := strings.Cut(payload, ":")
	if !found {
		return ErrUnknownDrop
	}
	if err := codec.ValidateID(id); err != nil {
		return err
	}
	switch strings.ToUpper(kind) {
	case "PHASE":
		l := document.NewLine(id, p.Offset(-dropSpawnOffset, -dropSpawnOffset), p)
		e.defs.ApplyDefault(l)
		e.selection = e.doc.AddPhase(l)
	case "DET":
		e.selection = e.doc.AddDetector(document.SquareOf(document.NewSquare(id, p.X, p.Y)))
	default:
		return ErrUnknownDrop
	}
	e.lastImage = p
	e.changed()
	return nil
}
