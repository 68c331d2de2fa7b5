package engine

import (
	"github.com/siteview/siteview/backend-go/internal/document"
)

const (
	MinZoom  = 1.0
	MaxZoom  = 3.5
	ZoomStep = 0.1
)

type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect represents an axis-aligned box in screen space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(p document.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Viewport describes how the background image sits in the canvas: letterboxed
// into Client, scaled by Zoom around the client center, then shifted by Pan
// screen pixels.
type Viewport struct {
	Image  Size           `json:"image"`
	Client Size           `json:"client"`
	Zoom   float64        `json:"zoom"`
	Pan    document.Point `json:"pan"`
}

func NewViewport() Viewport {
	return Viewport{Zoom: MinZoom}
}

// Fit returns the largest size with the image's aspect ratio that fits in box.
func Fit(image, box Size) Size {
	if image.Empty() {
		return Size{}
	}
	ar := image.H / image.W
	w := box.W
	h := w * ar
	if h > box.H {
		h = box.H
		w = h / ar
	}
	return Size{W: max(1, w), H: max(1, h)}
}

// DestRect is where the image lands on screen after fit, zoom and pan.
func (v Viewport) DestRect() Rect {
	if v.Image.Empty() {
		return Rect{}
	}
	fit := Fit(v.Image, v.Client)
	w := fit.W * v.Zoom
	h := fit.H * v.Zoom
	return Rect{
		X:      (v.Client.W-w)/2 + v.Pan.X,
		Y:      (v.Client.H-h)/2 + v.Pan.Y,
		Width:  w,
		Height: h,
	}
}

// Matrix is the image→screen transform. Rendering and pointer handling both
// go through it so the two can never disagree.
func (v Viewport) Matrix() Matrix2D {
	dest := v.DestRect()
	if dest.IsEmpty() {
		return Matrix2D{}
	}
	return Translate(dest.X, dest.Y).Multiply(Scale(dest.Width/v.Image.W, dest.Height/v.Image.H))
}

func (v Viewport) ImageToScreen(p document.Point) document.Point {
	return v.Matrix().Apply(p)
}

// ScreenToImage inverts ImageToScreen. With no image loaded it returns the
// zero point and false.
func (v Viewport) ScreenToImage(p document.Point) (document.Point, bool) {
	inv, ok := v.Matrix().Invert()
	if !ok {
		return document.Point{}, false
	}
	return inv.Apply(p), true
}

// WithZoom returns v with zoom moved by delta and clamped.
func (v Viewport) WithZoom(delta float64) Viewport {
	v.Zoom = document.Clamp(v.Zoom+delta, MinZoom, MaxZoom)
	return v
}

// HandleTolerance is the pick radius in image units. Zoom never drops below 1
// so this is 16 in practice; the division keeps handles reachable if it did.
func HandleTolerance(zoom float64) float64 {
	if zoom <= 0 {
		zoom = MinZoom
	}
	return handleSize / min(zoom, 1)
}

const handleSize = 16.0
