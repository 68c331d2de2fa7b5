// Package render rasterises a layout into a PNG preview by executing the
// same draw commands the browser canvas receives.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
)

var (
	regular = mustParse(goregular.TTF)
	bold    = mustParse(gobold.TTF)
)

func mustParse(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(fmt.Sprintf("parse embedded font: %v", err))
	}
	return f
}

type faceKey struct {
	bold bool
	size float64
}

// faceCache is per call; truetype faces are not safe for concurrent use.
type faceCache map[faceKey]font.Face

func (fc faceCache) get(isBold bool, size float64) font.Face {
	size = math.Max(1, math.Round(size*2)/2)
	key := faceKey{bold: isBold, size: size}
	if f, ok := fc[key]; ok {
		return f
	}
	f := regular
	if isBold {
		f = bold
	}
	ff := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	fc[key] = ff
	return ff
}

// Render draws doc over bg into a canvas of the given size. A nil bg renders
// onto a white image of size imageSize so layouts whose picture is missing
// can still be previewed.
func Render(bg image.Image, imageSize, size engine.Size, doc *document.Document, selected document.Ref) *image.RGBA {
	if bg != nil {
		b := bg.Bounds()
		imageSize = engine.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	}
	if size.Empty() {
		size = imageSize
	}
	w, h := int(math.Ceil(size.W)), int(math.Ceil(size.H))
	rgba := image.NewRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	dc := gg.NewContextForRGBA(rgba)
	dc.SetColor(color.White)
	dc.Clear()

	vp := engine.Viewport{Image: imageSize, Client: size, Zoom: engine.MinZoom}
	Execute(dc, engine.CompileDrawCommands(doc, vp, selected), bg, imageSize)
	return rgba
}

// Execute runs draw commands against a gg context.
func Execute(dc *gg.Context, cmds []engine.DrawCommand, bg image.Image, imageSize engine.Size) {
	faces := faceCache{}
	for _, c := range cmds {
		switch c.Op {
		case "image":
			drawBackground(dc, c.Rect, bg, imageSize)
		case "path":
			drawPath(dc, c)
		case "text":
			dc.SetFontFace(faces.get(c.Bold, c.FontSize))
			dc.SetHexColor(c.Fill)
			dc.DrawStringAnchored(c.Text, c.At.X, c.At.Y, 0, 1)
		case "handle":
			dc.DrawCircle(c.At.X, c.At.Y, c.Radius)
			dc.SetHexColor(c.Fill)
			dc.FillPreserve()
			dc.SetHexColor(c.Stroke)
			dc.SetLineWidth(c.StrokeWidth)
			dc.Stroke()
		}
	}
}

func drawBackground(dc *gg.Context, dest *engine.Rect, bg image.Image, imageSize engine.Size) {
	if dest == nil || bg == nil || imageSize.Empty() {
		return
	}
	dc.Push()
	dc.Translate(dest.X, dest.Y)
	dc.Scale(dest.Width/imageSize.W, dest.Height/imageSize.H)
	dc.DrawImage(bg, 0, 0)
	dc.Pop()
}

func drawPath(dc *gg.Context, c engine.DrawCommand) {
	dc.NewSubPath()
	for _, seg := range c.Path {
		op, _ := seg[0].(string)
		n := func(i int) float64 { v, _ := seg[i].(float64); return v }
		switch op {
		case "M":
			dc.MoveTo(n(1), n(2))
		case "L":
			dc.LineTo(n(1), n(2))
		case "C":
			dc.CubicTo(n(1), n(2), n(3), n(4), n(5), n(6))
		case "Z":
			dc.ClosePath()
		}
	}
	if c.Fill != "" {
		r, g, b := hexRGB(c.Fill)
		alpha := 1.0
		if c.Opacity > 0 {
			alpha = c.Opacity
		}
		dc.SetRGBA(r, g, b, alpha)
		if c.Stroke != "" {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if c.Stroke != "" {
		dc.SetHexColor(c.Stroke)
		dc.SetLineWidth(c.StrokeWidth)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.Stroke()
	}
	dc.ClearPath()
}

func hexRGB(hex string) (float64, float64, float64) {
	c, err := document.ParseColor(hex)
	if err != nil {
		return 0, 0, 0
	}
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// WritePNG renders and encodes in one go.
func WritePNG(w io.Writer, bg image.Image, imageSize, size engine.Size, doc *document.Document) error {
	img := Render(bg, imageSize, size, doc, document.Ref{})
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}
