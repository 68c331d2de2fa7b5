package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/typeid"
)

// ErrLayoutBusy is returned when a second connection asks for a layout that
// already has a session; editing is single-user.
var ErrLayoutBusy = errors.New("layout is already open in another session")

const saveTimeout = 10 * time.Second

// Loader reads a stored layout and its version.
type Loader func(ctx context.Context, layoutID string) (*document.Document, int, error)

// Saver stores doc over version and returns the new version.
type Saver func(ctx context.Context, layoutID string, doc *document.Document, version int) (int, error)

// ImageSizer reports the pixel size of a background picture.
type ImageSizer func(name string) (width, height int, err error)

// Hub owns every open editing session, one per layout.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Client // layoutID -> client

	load      Loader
	save      Saver
	imageSize ImageSizer

	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(load Loader, save Saver, imageSize ImageSizer) *Hub {
	return &Hub{
		sessions:   make(map[string]*Client),
		load:       load,
		save:       save,
		imageSize:  imageSize,
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop saves every dirty session, closes the connections and waits for Run
// to return.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Open claims layoutID, loads it and builds the session's editor. The caller
// starts the pumps.
func (h *Hub) Open(ctx context.Context, layoutID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if _, busy := h.sessions[layoutID]; busy {
		h.mu.Unlock()
		return nil, ErrLayoutBusy
	}
	// Hold the slot while loading so a racing Open sees it taken.
	h.sessions[layoutID] = nil
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		delete(h.sessions, layoutID)
		h.mu.Unlock()
	}

	doc, version, err := h.load(ctx, layoutID)
	if err != nil {
		release()
		return nil, fmt.Errorf("load layout: %w", err)
	}

	c := newClient(h, conn, typeid.NewSessionID(), layoutID, version)
	c.editor.Load(doc)
	if w, hgt, err := h.imageSize(doc.ImageFile); err != nil {
		c.logger.Warn("background image unavailable", "file", doc.ImageFile, "error", err)
		c.sendError(fmt.Errorf("background image unavailable: %w", err))
	} else {
		c.editor.SetImage(doc.ImageFile, w, hgt)
	}

	h.mu.Lock()
	h.sessions[layoutID] = c
	h.mu.Unlock()

	c.welcome()
	slog.Info("session opened", "session", c.SessionID, "layout", layoutID)
	return c, nil
}

// Session returns the open session for a layout, if any.
func (h *Hub) Session(layoutID string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.sessions[layoutID]
	return c, ok && c != nil
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if h.sessions[client.LayoutID] != client {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, client.LayoutID)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := client.saveIfDirty(ctx); err != nil {
		slog.Error("save on close failed", "session", client.SessionID, "layout", client.LayoutID, "error", err)
	}
	close(client.send)

	slog.Info("session closed", "session", client.SessionID, "layout", client.LayoutID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for id, c := range h.sessions {
		if c != nil {
			clients = append(clients, c)
		}
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := c.saveIfDirty(ctx); err != nil {
			slog.Error("save on shutdown failed", "session", c.SessionID, "layout", c.LayoutID, "error", err)
		}
		cancel()
		if c.conn != nil {
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
	slog.Info("sessions flushed", "count", len(clients))
}

func (h *Hub) persist(ctx context.Context, c *Client, doc *document.Document) (int, error) {
	return h.save(ctx, c.LayoutID, doc, c.version)
}

