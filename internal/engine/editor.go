package engine

import (
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
)

var (
	ErrNoImage        = errors.New("no background image loaded")
	ErrNoSelection    = errors.New("nothing selected")
	ErrInputPending   = errors.New("waiting for input response")
	ErrClipboardEmpty = errors.New("clipboard is empty")
	ErrWrongShape     = errors.New("operation does not apply to the selected shape")
	ErrNoDefinitions  = errors.New("no phase or detector definitions loaded")
	ErrUnknownDrop    = errors.New("unknown drop payload")
)

// State is the pointer gesture currently in progress.
type State int

const (
	Idle State = iota
	Panning
	DraggingVertex
	DraggingWhole
	PlacingNew
)

func (s State) String() string {
	switch s {
	case Panning:
		return "panning"
	case DraggingVertex:
		return "dragging-vertex"
	case DraggingWhole:
		return "dragging-whole"
	case PlacingNew:
		return "placing-new"
	default:
		return "idle"
	}
}

// CreateMode is the shape the next primary press on the canvas creates.
type CreateMode string

const (
	CreateNone   CreateMode = ""
	CreateLine   CreateMode = "line"
	CreateSquare CreateMode = "square"
	CreateText   CreateMode = "text"
)

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// Mods is a set of held modifier keys.
type Mods uint8

const (
	ModCtrl Mods = 1 << iota
	ModShift
	ModAlt
)

func (m Mods) Has(flag Mods) bool { return m&flag != 0 }

// PointerEvent is a pointer press, move or release in screen coordinates.
type PointerEvent struct {
	At     document.Point `json:"at"`
	Button Button         `json:"button"`
	Mods   Mods           `json:"mods"`
}

const (
	lineSpawnOffset = 60.0
	dropSpawnOffset = 40.0
	duplicateOffset = 12.0
	cornerGrab      = 24.0
)

// Editor is the complete editing state of one layout. All mutation goes
// through its methods; it is not safe for concurrent use.
type Editor struct {
	doc *document.Document
	vp  Viewport

	state     State
	placing   CreateMode
	mode      CreateMode
	dirty     bool
	selection document.Ref
	vertex    int

	clipboard     *document.Shape
	clipboardFrom document.Collection

	panAnchor document.Point // screen
	lastImage document.Point

	defs *definitions.Definitions

	pending     *Request
	nextRequest int
	responder   Responder

	layout    string
	onChange  func(layout string)
	onRequest func(Request)
	logger    *slog.Logger
}

type Option func(*Editor)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithResponder answers input requests synchronously instead of parking them.
func WithResponder(r Responder) Option {
	return func(e *Editor) { e.responder = r }
}

// WithOnChange registers a hook that receives the layout text after every mutation.
func WithOnChange(fn func(layout string)) Option {
	return func(e *Editor) { e.onChange = fn }
}

// WithOnRequest registers a hook that is told about every parked input request.
func WithOnRequest(fn func(Request)) Option {
	return func(e *Editor) { e.onRequest = fn }
}

// NewEditor creates an editor over an empty document.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{
		doc:    document.NewDocument(),
		vp:     NewViewport(),
		vertex: -1,
		defs:   definitions.Empty(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.layout = codec.Serialize(e.doc)
	return e
}

// --- Queries ---

// Document returns the live document. Callers must treat it as read-only.
func (e *Editor) Document() *document.Document { return e.doc }

func (e *Editor) Viewport() Viewport { return e.vp }

func (e *Editor) State() State { return e.state }

func (e *Editor) Mode() CreateMode { return e.mode }

// Vertex is the line vertex being dragged, or -1.
func (e *Editor) Vertex() int { return e.vertex }

// Layout returns the layout text for the current document.
func (e *Editor) Layout() string { return e.layout }

func (e *Editor) Dirty() bool { return e.dirty }

// MarkSaved clears the dirty flag after the host persisted Layout().
func (e *Editor) MarkSaved() { e.dirty = false }

func (e *Editor) Definitions() *definitions.Definitions { return e.defs }

// Selection returns the selected shape reference, if any.
func (e *Editor) Selection() (document.Ref, bool) {
	if _, ok := e.doc.Shape(e.selection); !ok {
		return document.Ref{}, false
	}
	return e.selection, true
}

// SelectedShape returns the live selected shape.
func (e *Editor) SelectedShape() (document.Shape, bool) {
	return e.doc.Shape(e.selection)
}

// HitTest runs the hit tester at a screen point.
func (e *Editor) HitTest(screen document.Point) (Hit, bool) {
	p, ok := e.vp.ScreenToImage(screen)
	if !ok {
		return Hit{Vertex: -1}, false
	}
	return HitTest(e.doc, p, e.vp.Zoom)
}

// DrawCommands compiles the current view.
func (e *Editor) DrawCommands() []DrawCommand {
	return CompileDrawCommands(e.doc, e.vp, e.selection)
}

// Render returns the current view as a JSON draw list.
func (e *Editor) Render() (string, error) {
	return DrawCommandsToJSON(e.DrawCommands())
}

// Summary is the per-name usage table shown next to the canvas.
type Summary struct {
	Phases    []document.NameCount `json:"phases"`
	Detectors []document.NameCount `json:"detectors"`
}

func (e *Editor) Summary() Summary {
	return Summary{
		Phases:    e.doc.PhaseCounts(e.defs.Phases, e.defs.Defaults()),
		Detectors: e.doc.DetectorCounts(e.defs.Detectors),
	}
}

// --- Document and view setup ---

// SetImage records the background image and resets zoom and pan.
func (e *Editor) SetImage(file string, width, height int) {
	e.vp.Image = Size{W: float64(width), H: float64(height)}
	e.vp.Zoom = MinZoom
	e.vp.Pan = document.Point{}
	if file != "" && file != e.doc.ImageFile {
		e.doc.ImageFile = file
		e.changed()
	}
}

// SetClient records the canvas size in screen pixels.
func (e *Editor) SetClient(width, height float64) {
	e.vp.Client = Size{W: width, H: height}
}

// ZoomBy moves the zoom by steps of ZoomStep.
func (e *Editor) ZoomBy(steps int) {
	e.vp = e.vp.WithZoom(float64(steps) * ZoomStep)
}

// Load replaces the document and resets the gesture state. A parked request
// is dropped since its target belongs to the old document. The clipboard
// survives so shapes can be pasted across layouts.
func (e *Editor) Load(doc *document.Document) {
	if doc.Positions == nil {
		doc.Positions = document.NewMappings()
	}
	if e.pending != nil {
		e.logger.Debug("input request dropped by load", "request", e.pending.ID)
		e.pending = nil
	}
	e.doc = doc
	e.selection = document.Ref{}
	e.state = Idle
	e.placing = CreateNone
	e.vertex = -1
	e.dirty = false
	e.refresh()
}

// LoadLayout parses layout text and swaps it in. On error the current
// document is left untouched.
func (e *Editor) LoadLayout(text string) ([]codec.Skipped, error) {
	if e.pending != nil {
		return nil, ErrInputPending
	}
	doc, skipped, err := codec.ParseDetailed(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		e.logger.Warn("skipped layout record", "line", s.Line, "section", s.Section, "reason", s.Reason)
	}
	e.Load(doc)
	return skipped, nil
}

// ApplyDefinitions installs imported names, replaces the position table and
// applies default arrows to phases whose type was never edited.
func (e *Editor) ApplyDefinitions(defs *definitions.Definitions) error {
	if e.pending != nil {
		return ErrInputPending
	}
	e.defs = defs
	n := defs.Apply(e.doc)
	e.logger.Info("definitions applied", "phases", len(defs.Phases), "detectors", len(defs.Detectors), "retyped", n)
	e.changed()
	return nil
}

// SetMode arms the creation mode consumed by the next primary press.
func (e *Editor) SetMode(m CreateMode) error {
	if e.pending != nil {
		return ErrInputPending
	}
	e.mode = m
	return nil
}

// --- Pointer and keyboard ---

// PointerDown starts a gesture.
func (e *Editor) PointerDown(ev PointerEvent) error {
	if e.pending != nil {
		return ErrInputPending
	}
	p, ok := e.vp.ScreenToImage(ev.At)
	if !ok {
		return ErrNoImage
	}
	e.lastImage = p

	if ev.Button == ButtonSecondary {
		// Context actions keep the previous selection when clicking empty canvas.
		if hit, ok := HitTest(e.doc, p, e.vp.Zoom); ok {
			e.selection = hit.Ref
		}
		return nil
	}

	if e.mode != CreateNone {
		mode := e.mode
		e.mode = CreateNone
		return e.create(mode, p)
	}

	hit, ok := HitTest(e.doc, p, e.vp.Zoom)
	if !ok {
		e.selection = document.Ref{}
		e.state = Panning
		e.panAnchor = ev.At
		return nil
	}
	e.selection = hit.Ref
	e.vertex = hit.Vertex
	if s, _ := e.doc.Shape(hit.Ref); s.Kind == document.KindLine && hit.Vertex >= 0 {
		e.state = DraggingVertex
	} else {
		e.state = DraggingWhole
	}
	return nil
}

func (e *Editor) create(mode CreateMode, p document.Point) error {
	switch mode {
	case CreateLine:
		l := document.NewLine("", p.Offset(-lineSpawnOffset, -lineSpawnOffset), p)
		e.beginPlacing(mode, e.doc.AddPhase(l))
	case CreateSquare:
		sq := document.NewSquare("", p.X, p.Y)
		e.beginPlacing(mode, e.doc.AddDetector(document.SquareOf(sq)))
	case CreateText:
		before := len(e.doc.Texts)
		e.ask(Request{
			Kind:    RequestText,
			Title:   "New Text",
			Label:   document.DefaultTextLabel,
			Color:   document.Black,
			purpose: purposeCreateText,
			at:      p,
		})
		if e.pending == nil && len(e.doc.Texts) > before {
			e.state = PlacingNew
			e.placing = mode
		}
	}
	return nil
}

func (e *Editor) beginPlacing(mode CreateMode, ref document.Ref) {
	e.selection = ref
	e.state = PlacingNew
	e.placing = mode
	e.vertex = -1
	e.changed()
}

// PointerMove continues the active gesture. Moves outside a gesture only
// track the pointer.
func (e *Editor) PointerMove(ev PointerEvent) error {
	if e.pending != nil {
		return ErrInputPending
	}
	p, ok := e.vp.ScreenToImage(ev.At)
	if ok {
		e.lastImage = p
	}

	switch e.state {
	case Panning:
		e.vp.Pan = e.vp.Pan.Offset(ev.At.X-e.panAnchor.X, ev.At.Y-e.panAnchor.Y)
		e.panAnchor = ev.At
	case DraggingVertex, DraggingWhole, PlacingNew:
		if ok {
			e.dragTo(p, ev.Mods)
		}
	}
	return nil
}

func (e *Editor) dragTo(p document.Point, mods Mods) {
	s, ok := e.doc.Shape(e.selection)
	if !ok {
		return
	}
	switch s.Kind {
	case document.KindLine:
		l := s.Line
		if e.state == DraggingVertex && e.vertex >= 0 && e.vertex < len(l.Points) {
			l.Points[e.vertex] = p
		} else {
			tip := l.Tip()
			l.Translate(p.X-tip.X, p.Y-tip.Y)
		}
	case document.KindSquare:
		sq := s.Square
		dx, dy := p.X-sq.X, p.Y-sq.Y
		switch {
		case mods.Has(ModCtrl):
			sq.Rotation = document.WrapDegrees(math.Atan2(dy, dx) * 180 / math.Pi)
		case Distance(p, sq.Corner()) < cornerGrab/min(e.vp.Zoom, 1):
			size := document.Clamp(2*math.Max(math.Abs(dx), math.Abs(dy)), document.MinSquareSize, document.MaxSquareDragSize)
			sq.Width, sq.Height = size, size
		default:
			sq.X, sq.Y = p.X, p.Y
		}
	case document.KindText:
		s.Text.X, s.Text.Y = p.X, p.Y
	}
	e.changed()
}

// PointerUp ends the active gesture.
func (e *Editor) PointerUp(PointerEvent) error {
	if e.pending != nil {
		return ErrInputPending
	}
	e.state = Idle
	e.placing = CreateNone
	e.vertex = -1
	return nil
}

// Wheel adjusts the selected shape, or the zoom when nothing is selected.
// Only the sign of delta matters.
func (e *Editor) Wheel(delta float64, mods Mods) error {
	if e.pending != nil {
		return ErrInputPending
	}
	if delta == 0 {
		return nil
	}
	step := 1
	if delta < 0 {
		step = -1
	}

	s, ok := e.doc.Shape(e.selection)
	if !ok {
		e.ZoomBy(step)
		return nil
	}
	switch s.Kind {
	case document.KindLine:
		s.Line.Thickness = document.ClampInt(s.Line.Thickness+step, document.MinLineThickness, document.MaxLineThickness)
	case document.KindSquare:
		sq := s.Square
		if mods.Has(ModCtrl) {
			sq.Rotation = document.WrapDegrees(sq.Rotation + float64(5*step))
		} else {
			d := float64(2 * step)
			sq.Width = document.Clamp(sq.Width+d, document.MinSquareSize, document.MaxSquareWheelSize)
			sq.Height = document.Clamp(sq.Height+d, document.MinSquareSize, document.MaxSquareWheelSize)
		}
	case document.KindText:
		s.Text.Size = document.ClampInt(s.Text.Size+2*step, document.MinFontSize, document.MaxFontSize)
	}
	e.changed()
	return nil
}

// HostAction is a hotkey the editor cannot handle itself.
type HostAction string

const (
	HostNone          HostAction = ""
	HostSave          HostAction = "save"
	HostOpen          HostAction = "open"
	HostChooseImage   HostAction = "image"
	HostToggleSidebar HostAction = "sidebar"
)

// KeyDown handles the editor hotkeys. Keys are named like KeyboardEvent.key
// ("d", "Delete"); letters are case-insensitive.
func (e *Editor) KeyDown(key string, mods Mods) (HostAction, error) {
	if e.pending != nil {
		return HostNone, ErrInputPending
	}
	key = strings.ToLower(key)
	ctrl := mods.Has(ModCtrl)

	var err error
	switch {
	case ctrl && key == "s":
		return HostSave, nil
	case ctrl && key == "o":
		return HostOpen, nil
	case ctrl && key == "i":
		return HostChooseImage, nil
	case ctrl && key == "h":
		return HostToggleSidebar, nil
	case ctrl && key == "c":
		err = e.Copy()
	case ctrl && key == "v":
		err = e.Paste()
	case ctrl && key == "d":
		err = e.DuplicateSelected()
	case key == "delete" || (!ctrl && key == "d"):
		err = e.DeleteSelected()
	case !ctrl && key == "l":
		e.mode = CreateLine
	case !ctrl && key == "t":
		e.mode = CreateText
	case !ctrl && (key == "q" || key == "s"):
		e.mode = CreateSquare
	case !ctrl && key == "a":
		if s, ok := e.doc.Shape(e.selection); ok && s.Kind == document.KindLine {
			err = e.InsertBendAt(e.lastImage)
		}
	}

	// Hotkeys with nothing to act on are no-ops.
	if errors.Is(err, ErrNoSelection) || errors.Is(err, ErrClipboardEmpty) {
		err = nil
	}
	return HostNone, err
}

// changed marks the document dirty and republishes the layout text.
func (e *Editor) changed() {
	e.dirty = true
	e.refresh()
}

func (e *Editor) refresh() {
	e.layout = codec.Serialize(e.doc)
	if e.onChange != nil {
		e.onChange(e.layout)
	}
}
