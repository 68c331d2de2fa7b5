package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownArrow   = errors.New("unknown arrow type")
)

// Handle applies one inbound message to the editor and publishes the result.
func (c *Client) Handle(ctx context.Context, msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.dispatch(ctx, msg); err != nil {
		if errors.Is(err, engine.ErrInputPending) {
			if req, ok := c.editor.Pending(); ok {
				c.sendMessage(TypeInputRequest, req)
			}
		}
		c.logger.Debug("message rejected", "type", msg.Type, "error", err)
		c.sendError(err)
	}
	c.publish()
}

func (c *Client) dispatch(ctx context.Context, msg *Message) error {
	// While a request is parked only its answer and saves get through.
	if _, pending := c.editor.Pending(); pending && msg.Type != TypeInputResponse && msg.Type != TypeSave {
		return engine.ErrInputPending
	}

	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		ev := engine.PointerEvent{At: document.Point{X: p.X, Y: p.Y}, Mods: p.mods()}
		if p.Button == "secondary" {
			ev.Button = engine.ButtonSecondary
		}
		switch msg.Type {
		case TypePointerDown:
			return c.editor.PointerDown(ev)
		case TypePointerMove:
			return c.editor.PointerMove(ev)
		default:
			return c.editor.PointerUp(ev)
		}

	case TypeWheel:
		var p WheelPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return c.editor.Wheel(p.Delta, p.mods())

	case TypeKey:
		var p KeyPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		action, err := c.editor.KeyDown(p.Key, p.mods())
		if err != nil {
			return err
		}
		switch action {
		case engine.HostNone:
		case engine.HostSave:
			return c.explicitSave(ctx)
		default:
			c.sendMessage(TypeHostAction, HostActionPayload{Action: action})
		}
		return nil

	case TypeModeSet:
		var p ModePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return c.editor.SetMode(p.Mode)

	case TypeViewportResize:
		var p ResizePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		c.editor.SetClient(p.Width, p.Height)
		return nil

	case TypeAction:
		var p ActionPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return c.action(p)

	case TypeInputResponse:
		var resp engine.Response
		if err := decode(msg, &resp); err != nil {
			return err
		}
		return c.editor.Respond(resp)

	case TypeSave:
		return c.explicitSave(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

func (c *Client) action(p ActionPayload) error {
	at := document.Point{X: p.X, Y: p.Y}

	switch p.Name {
	case ActionDuplicate:
		return c.editor.DuplicateSelected()
	case ActionCopy:
		return c.editor.Copy()
	case ActionPaste:
		return c.editor.Paste()
	case ActionDelete:
		return c.editor.DeleteSelected()

	case ActionBend:
		ip, ok := c.editor.Viewport().ScreenToImage(at)
		if !ok {
			return engine.ErrNoImage
		}
		return c.editor.InsertBendAt(ip)

	case ActionArrow:
		t, ok := codec.ParseArrow(p.Value)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownArrow, p.Value)
		}
		return c.editor.SetArrowType(t)

	case ActionAssignPhase:
		if p.Value == "" {
			return c.editor.RequestAssignPhase()
		}
		return c.editor.AssignPhase(p.Value)

	case ActionAssignDetector:
		switch {
		case p.Value == "":
			return c.editor.RequestAssignDetector()
		case strings.EqualFold(p.Value, definitions.NoDetector):
			return c.editor.AssignDetector("")
		}
		return c.editor.AssignDetector(p.Value)

	case ActionEditText:
		return c.editor.RequestEditText()
	case ActionSquareColor:
		return c.editor.RequestSquareColor()
	case ActionDrop:
		return c.editor.DropDefinition(p.Value, at)

	case ActionImage:
		w, h, err := c.hub.imageSize(p.Value)
		if err != nil {
			return err
		}
		c.editor.SetImage(p.Value, w, h)
		return nil

	case ActionDefinitions:
		defs, err := definitions.Import(strings.NewReader(p.Value))
		if err != nil {
			return err
		}
		return c.editor.ApplyDefinitions(defs)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, p.Name)
}

func (c *Client) explicitSave(ctx context.Context) error {
	if err := c.saveLocked(ctx); err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	c.sendMessage(TypeSaved, SavedPayload{Version: c.version})
	return nil
}

func decode(msg *Message, v interface{}) error {
	if len(msg.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return nil
}
