package engine

import (
	"errors"
	"strings"

	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
)

var (
	ErrNoRequest     = errors.New("no input request is pending")
	ErrStaleResponse = errors.New("response does not match the pending request")
)

type RequestKind string

const (
	RequestText  RequestKind = "text"
	RequestColor RequestKind = "color"
	RequestPick  RequestKind = "pick"
)

type requestPurpose int

const (
	purposeCreateText requestPurpose = iota
	purposeEditText
	purposeDuplicateText
	purposeSquareColor
	purposeAssignPhase
	purposeAssignDetector
)

// Request asks the host for modal input. Label, Text and Color carry the
// initial values; Choices is set for pick requests.
type Request struct {
	ID      int            `json:"id"`
	Kind    RequestKind    `json:"kind"`
	Title   string         `json:"title"`
	Label   string         `json:"label,omitempty"`
	Text    string         `json:"text,omitempty"`
	Color   document.Color `json:"color"`
	Choices []string       `json:"choices,omitempty"`

	purpose requestPurpose
	target  document.Ref
	at      document.Point
}

// Response answers a Request. Cancel discards the request with no mutation.
type Response struct {
	ID     int            `json:"id"`
	Cancel bool           `json:"cancel"`
	Label  string         `json:"label,omitempty"`
	Text   string         `json:"text,omitempty"`
	Color  document.Color `json:"color"`
	Choice string         `json:"choice,omitempty"`
}

// Responder answers requests synchronously.
type Responder func(Request) Response

// Pending returns the parked input request, if any.
func (e *Editor) Pending() (Request, bool) {
	if e.pending == nil {
		return Request{}, false
	}
	return *e.pending, true
}

// Respond resolves the pending request.
func (e *Editor) Respond(resp Response) error {
	if e.pending == nil {
		return ErrNoRequest
	}
	if resp.ID != e.pending.ID {
		return ErrStaleResponse
	}
	req := *e.pending
	e.pending = nil
	e.resolve(req, resp)
	return nil
}

// ask issues a request. With a responder it is answered on the spot;
// otherwise it is parked and every event is refused until Respond.
func (e *Editor) ask(req Request) {
	e.nextRequest++
	req.ID = e.nextRequest
	if e.responder != nil {
		resp := e.responder(req)
		resp.ID = req.ID
		e.resolve(req, resp)
		return
	}
	e.pending = &req
	e.state = Idle
	if e.onRequest != nil {
		e.onRequest(req)
	}
}

func (e *Editor) resolve(req Request, resp Response) {
	if resp.Cancel {
		return
	}

	switch req.purpose {
	case purposeCreateText:
		t := document.NewText(resp.Label, resp.Text, req.at.X, req.at.Y, resp.Color)
		e.selection = e.doc.AddText(t)
		e.changed()

	case purposeEditText:
		s, ok := e.doc.Shape(req.target)
		if !ok || s.Kind != document.KindText {
			return
		}
		s.Text.Label = labelOrDefault(resp.Label)
		s.Text.Text = resp.Text
		s.Text.Color = resp.Color
		e.changed()

	case purposeDuplicateText:
		s, ok := e.doc.Shape(req.target)
		if !ok || s.Kind != document.KindText {
			return
		}
		dup := s.Clone()
		dup.Translate(duplicateOffset, duplicateOffset)
		dup.Text.Label = labelOrDefault(resp.Label)
		dup.Text.Text = resp.Text
		e.selection = e.doc.AddText(dup.Text)
		e.changed()

	case purposeSquareColor:
		s, ok := e.doc.Shape(req.target)
		if !ok || s.Kind != document.KindSquare {
			return
		}
		s.Square.Fill = resp.Color
		e.changed()

	case purposeAssignPhase:
		if resp.Choice != "" {
			e.selection = req.target
			if err := e.AssignPhase(resp.Choice); err != nil {
				e.logger.Warn("assign phase", "choice", resp.Choice, "error", err)
			}
		}

	case purposeAssignDetector:
		if resp.Choice == "" {
			return
		}
		choice := resp.Choice
		if strings.EqualFold(strings.TrimSpace(choice), definitions.NoDetector) {
			choice = ""
		}
		e.selection = req.target
		if err := e.AssignDetector(choice); err != nil {
			e.logger.Warn("assign detector", "choice", resp.Choice, "error", err)
		}
	}
}

func labelOrDefault(label string) string {
	if strings.TrimSpace(label) == "" {
		return document.DefaultTextLabel
	}
	return label
}
