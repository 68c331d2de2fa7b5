package layouts

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
	"github.com/siteview/siteview/backend-go/internal/render"
	"github.com/siteview/siteview/backend-go/internal/store"
	"github.com/siteview/siteview/backend-go/internal/typeid"
)

var (
	ErrNotFound    = errors.New("layout not found")
	ErrConflict    = errors.New("layout was changed by someone else")
	ErrInvalidName = errors.New("name is required")
)

// blankPreview is the canvas used when a layout's picture cannot be loaded.
var blankPreview = engine.Size{W: 1024, H: 768}

// Images resolves background picture file names.
type Images interface {
	Load(name string) (image.Image, error)
}

type Service struct {
	store  store.Store
	images Images
}

func NewService(st store.Store, images Images) *Service {
	return &Service{store: st, images: images}
}

// SaveResult is a stored layout plus any records the parser dropped on the way in.
type SaveResult struct {
	Layout  *store.Layout   `json:"layout"`
	Skipped []codec.Skipped `json:"skipped"`
}

func (s *Service) Create(ctx context.Context, name string) (*store.Layout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	l, err := s.store.Put(ctx, &store.Layout{
		ID:   typeid.NewLayoutID(),
		Name: name,
		Body: codec.Serialize(document.NewDocument()),
	})
	if err != nil {
		return nil, fmt.Errorf("create layout: %w", err)
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, id string) (*store.Layout, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return l, nil
}

func (s *Service) List(ctx context.Context) ([]store.Layout, error) {
	layouts, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	return layouts, nil
}

// Open loads a stored layout and parses it.
func (s *Service) Open(ctx context.Context, id string) (*document.Document, *store.Layout, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc, skipped, err := codec.ParseDetailed(strings.NewReader(l.Body))
	if err != nil {
		return nil, nil, err
	}
	if len(skipped) > 0 {
		slog.Warn("stored layout has unreadable records", "layout_id", id, "skipped", len(skipped))
	}
	return doc, l, nil
}

// Save validates body as layout text and stores its normalised form. version
// must be the version the caller last read. An empty name keeps the old one.
func (s *Service) Save(ctx context.Context, id, name, body string, version int) (*SaveResult, error) {
	doc, skipped, err := codec.ParseDetailed(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = current.Name
	}
	l, err := s.put(ctx, &store.Layout{ID: id, Name: name, Body: codec.Serialize(doc), Version: version})
	if err != nil {
		return nil, err
	}
	return &SaveResult{Layout: l, Skipped: skipped}, nil
}

// SaveDocument stores doc over version of layout id.
func (s *Service) SaveDocument(ctx context.Context, id string, doc *document.Document, version int) (*store.Layout, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.put(ctx, &store.Layout{ID: id, Name: current.Name, Body: codec.Serialize(doc), Version: version})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return translate(err)
	}
	return nil
}

// ImportDefinitions applies a controller configuration to a stored layout:
// positions are replaced and unedited phases take their default arrows.
func (s *Service) ImportDefinitions(ctx context.Context, id string, r io.Reader) (*store.Layout, *definitions.Definitions, error) {
	defs, err := definitions.Import(r)
	if err != nil {
		return nil, nil, err
	}
	doc, l, err := s.Open(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	changed := defs.Apply(doc)
	slog.Info("definitions applied", "layout_id", id, "phases", len(defs.Phases), "detectors", len(defs.Detectors), "retyped", changed)

	l.Body = codec.Serialize(doc)
	saved, err := s.put(ctx, l)
	if err != nil {
		return nil, nil, err
	}
	return saved, defs, nil
}

// Preview writes a PNG of the layout. width scales the output; 0 keeps the
// picture's own size.
func (s *Service) Preview(ctx context.Context, id string, width int, w io.Writer) error {
	doc, _, err := s.Open(ctx, id)
	if err != nil {
		return err
	}

	imageSize := blankPreview
	var bg image.Image
	if s.images != nil {
		bg, err = s.images.Load(doc.ImageFile)
		if err != nil {
			slog.Warn("preview without background", "layout_id", id, "error", err)
			bg = nil
		} else {
			b := bg.Bounds()
			imageSize = engine.Size{W: float64(b.Dx()), H: float64(b.Dy())}
		}
	}

	size := imageSize
	if width > 0 {
		size = engine.Size{W: float64(width), H: float64(width) * imageSize.H / imageSize.W}
	}
	return render.WritePNG(w, bg, imageSize, size, doc)
}

func (s *Service) put(ctx context.Context, l *store.Layout) (*store.Layout, error) {
	saved, err := s.store.Put(ctx, l)
	if err != nil {
		return nil, translate(err)
	}
	return saved, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	}
	return err
}
