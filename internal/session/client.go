package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	// Definition imports travel inside a message, so this is generous.
	maxMsgSize = 8 << 20
)

// Client is one websocket connection editing one layout. All editor access
// goes through mu; events are applied in arrival order on the read loop.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	SessionID string
	LayoutID  string

	mu      sync.Mutex
	editor  *engine.Editor
	version int
	seq     int64
	changed bool
	logger  *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, sessionID, layoutID string, version int) *Client {
	c := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		SessionID: sessionID,
		LayoutID:  layoutID,
		version:   version,
		logger:    slog.With("session", sessionID, "layout", layoutID),
	}
	c.editor = engine.NewEditor(
		engine.WithLogger(c.logger),
		engine.WithOnChange(func(string) { c.changed = true }),
		engine.WithOnRequest(func(req engine.Request) { c.sendMessage(TypeInputRequest, req) }),
	)
	return c
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			c.logger.Debug("read error", "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}

		c.Handle(ctx, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("client send buffer full, dropping message", "type", msg.Type)
	}
}

func (c *Client) sendMessage(typ string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshal payload", "type", typ, "error", err)
		return
	}
	c.seq++
	c.Send(&Message{
		Type:      typ,
		LayoutID:  c.LayoutID,
		SessionID: c.SessionID,
		Seq:       c.seq,
		Payload:   raw,
	})
}

func (c *Client) sendError(err error) {
	c.sendMessage(TypeError, ErrorPayload{Message: err.Error()})
}

func (c *Client) welcome() {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(document.ArrowTypes))
	for _, at := range document.ArrowTypes {
		names = append(names, at.String())
	}
	c.sendMessage(TypeWelcome, WelcomePayload{
		SessionID:   c.SessionID,
		LayoutID:    c.LayoutID,
		Version:     c.version,
		Definitions: c.editor.Definitions(),
		ArrowTypes:  names,
	})
	c.changed = true
	c.publish()
}

// publish sends the layout text when it changed and always a fresh draw list.
func (c *Client) publish() {
	if c.changed {
		c.changed = false
		c.sendMessage(TypeLayout, LayoutPayload{
			Text:    c.editor.Layout(),
			Dirty:   c.editor.Dirty(),
			Summary: c.editor.Summary(),
		})
	}

	var sel *document.Ref
	if ref, ok := c.editor.Selection(); ok {
		sel = &ref
	}
	c.sendMessage(TypeDraw, DrawPayload{
		Commands:  c.editor.DrawCommands(),
		State:     c.editor.State().String(),
		Mode:      c.editor.Mode(),
		Selection: sel,
		Viewport:  c.editor.Viewport(),
	})
}

// saveIfDirty stores the document when it has unsaved changes.
func (c *Client) saveIfDirty(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx)
}

func (c *Client) saveLocked(ctx context.Context) error {
	if !c.editor.Dirty() {
		return nil
	}
	v, err := c.hub.persist(ctx, c, c.editor.Document())
	if err != nil {
		return err
	}
	c.version = v
	c.editor.MarkSaved()
	c.changed = true
	c.logger.Info("layout saved", "version", v)
	return nil
}
