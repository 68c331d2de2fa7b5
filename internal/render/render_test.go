package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
)

func grey(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func TestRenderDrawsShapesOverBackground(t *testing.T) {
	doc := document.NewDocument()
	l := document.NewLine("A", document.Point{X: 10, Y: 50}, document.Point{X: 90, Y: 50})
	doc.AddPhase(l)

	img := Render(grey(100, 100), engine.Size{}, engine.Size{}, doc, document.Ref{})
	require.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())

	// Background shows away from the line, the line itself is black.
	r, g, b, _ := img.At(50, 10).RGBA()
	assert.Equal(t, [3]uint32{128, 128, 128}, [3]uint32{r >> 8, g >> 8, b >> 8})
	r, g, b, _ = img.At(50, 50).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestRenderSelectionColour(t *testing.T) {
	doc := document.NewDocument()
	ref := doc.AddPhase(document.NewLine("A", document.Point{X: 10, Y: 50}, document.Point{X: 90, Y: 50}))

	img := Render(grey(100, 100), engine.Size{}, engine.Size{}, doc, ref)
	r, g, b, _ := img.At(50, 50).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 255}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestRenderWithoutBackground(t *testing.T) {
	doc := document.NewSampleDocument()
	img := Render(nil, engine.Size{W: 800, H: 700}, engine.Size{W: 400, H: 350}, doc, document.Ref{})
	assert.Equal(t, image.Rect(0, 0, 400, 350), img.Bounds())
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, grey(64, 32), engine.Size{}, engine.Size{}, document.NewSampleDocument()))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 32, decoded.Bounds().Dy())
}

func TestHexRGB(t *testing.T) {
	r, g, b := hexRGB("#FF8000")
	assert.InDelta(t, 1.0, r, 1e-9)
	assert.InDelta(t, 128.0/255, g, 1e-9)
	assert.InDelta(t, 0.0, b, 1e-9)
}
