package session

import (
	"encoding/json"

	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	LayoutID  string          `json:"layoutId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client -> server
	TypePointerDown    = "pointer.down"
	TypePointerMove    = "pointer.move"
	TypePointerUp      = "pointer.up"
	TypeWheel          = "wheel"
	TypeKey            = "key"
	TypeModeSet        = "mode.set"
	TypeViewportResize = "viewport.resize"
	TypeAction         = "action"
	TypeInputResponse  = "input.response"
	TypeSave           = "save"

	// Server -> client
	TypeWelcome      = "welcome"
	TypeLayout       = "layout"
	TypeDraw         = "draw"
	TypeInputRequest = "input.request"
	TypeHostAction   = "host.action"
	TypeSaved        = "saved"
	TypeError        = "error"
)

// Action names carried by TypeAction.
const (
	ActionDuplicate      = "duplicate"
	ActionCopy           = "copy"
	ActionPaste          = "paste"
	ActionDelete         = "delete"
	ActionBend           = "bend"
	ActionArrow          = "arrow"
	ActionAssignPhase    = "assign.phase"
	ActionAssignDetector = "assign.detector"
	ActionEditText       = "edit.text"
	ActionSquareColor    = "color.square"
	ActionDrop           = "drop"
	ActionImage          = "image"
	ActionDefinitions    = "definitions"
)

// Modifiers is shared by every input payload.
type Modifiers struct {
	Ctrl  bool `json:"ctrl,omitempty"`
	Shift bool `json:"shift,omitempty"`
	Alt   bool `json:"alt,omitempty"`
}

func (m Modifiers) mods() engine.Mods {
	var out engine.Mods
	if m.Ctrl {
		out |= engine.ModCtrl
	}
	if m.Shift {
		out |= engine.ModShift
	}
	if m.Alt {
		out |= engine.ModAlt
	}
	return out
}

type PointerPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button,omitempty"` // "primary" (default) or "secondary"
	Modifiers
}

type WheelPayload struct {
	Delta float64 `json:"delta"`
	Modifiers
}

type KeyPayload struct {
	Key string `json:"key"`
	Modifiers
}

type ModePayload struct {
	Mode engine.CreateMode `json:"mode"`
}

type ResizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ActionPayload names an editor action. Value carries the argument where one
// is needed: an arrow type, a phase or detector id, a drop payload, an image
// file name or a CPF document. X and Y are screen coordinates for bend and
// drop.
type ActionPayload struct {
	Name  string  `json:"name"`
	Value string  `json:"value,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
}

type WelcomePayload struct {
	SessionID   string                   `json:"sessionId"`
	LayoutID    string                   `json:"layoutId"`
	Version     int                      `json:"version"`
	Definitions *definitions.Definitions `json:"definitions"`
	ArrowTypes  []string                 `json:"arrowTypes"`
}

type LayoutPayload struct {
	Text    string         `json:"text"`
	Dirty   bool           `json:"dirty"`
	Summary engine.Summary `json:"summary"`
}

type DrawPayload struct {
	Commands  []engine.DrawCommand `json:"commands"`
	State     string               `json:"state"`
	Mode      engine.CreateMode    `json:"mode,omitempty"`
	Selection *document.Ref        `json:"selection,omitempty"`
	Viewport  engine.Viewport      `json:"viewport"`
}

type HostActionPayload struct {
	Action engine.HostAction `json:"action"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
