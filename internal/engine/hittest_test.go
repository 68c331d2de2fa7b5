package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteview/siteview/backend-go/internal/document"
)

func hitDoc() *document.Document {
	doc := document.NewDocument()
	doc.AddPhase(document.NewLine("A", document.Point{X: 100, Y: 100}, document.Point{X: 300, Y: 100}))
	doc.AddDetector(document.SquareOf(document.NewSquare("D1", 600, 600)))
	doc.AddText(document.NewText("L", "Hello", 50, 400, document.Black))
	return doc
}

func TestHitTestLineVertex(t *testing.T) {
	hit, ok := HitTest(hitDoc(), document.Point{X: 301, Y: 103}, 1)
	require.True(t, ok)
	assert.Equal(t, document.Ref{Collection: document.CollectionPhases, Index: 0}, hit.Ref)
	assert.Equal(t, 1, hit.Vertex)
}

func TestHitTestLineSegment(t *testing.T) {
	hit, ok := HitTest(hitDoc(), document.Point{X: 200, Y: 110}, 1)
	require.True(t, ok)
	assert.Equal(t, document.CollectionPhases, hit.Ref.Collection)
	assert.Equal(t, -1, hit.Vertex)
}

func TestHitTestMiss(t *testing.T) {
	_, ok := HitTest(hitDoc(), document.Point{X: 900, Y: 50}, 1)
	assert.False(t, ok)

	_, ok = HitTest(hitDoc(), document.Point{X: 200, Y: 117}, 1)
	assert.False(t, ok, "just outside tolerance")
}

func TestHitTestSquare(t *testing.T) {
	doc := hitDoc()
	ref := document.Ref{Collection: document.CollectionDetectors, Index: 0}

	// Corner reach is measured from the resize corner (620, 620).
	hit, ok := HitTest(doc, document.Point{X: 637, Y: 637}, 1)
	require.True(t, ok)
	assert.Equal(t, ref, hit.Ref)
	assert.Equal(t, -1, hit.Vertex)

	// Body box is half extent plus tolerance.
	hit, ok = HitTest(doc, document.Point{X: 565, Y: 600}, 1)
	require.True(t, ok)
	assert.Equal(t, ref, hit.Ref)

	_, ok = HitTest(doc, document.Point{X: 560, Y: 560}, 1)
	assert.False(t, ok)
}

func TestHitTestTextBox(t *testing.T) {
	doc := hitDoc()
	// "Hello" at size 18 is 5*18*0.6 = 54 wide.
	hit, ok := HitTest(doc, document.Point{X: 50 + 54 + 15, Y: 400 + 18 + 15}, 1)
	require.True(t, ok)
	assert.Equal(t, document.CollectionTexts, hit.Ref.Collection)

	_, ok = HitTest(doc, document.Point{X: 50 + 54 + 17, Y: 400}, 1)
	assert.False(t, ok)
}

func TestHitTestOrder(t *testing.T) {
	doc := document.NewDocument()
	doc.AddPhase(document.NewLine("P", document.Point{X: 0, Y: 0}, document.Point{X: 100, Y: 0}))
	doc.AddDetector(document.LineOf(document.NewLine("D", document.Point{X: 0, Y: 0}, document.Point{X: 100, Y: 0})))
	doc.AddText(document.NewText("", "T", 40, -5, document.Black))

	hit, ok := HitTest(doc, document.Point{X: 45, Y: 0}, 1)
	require.True(t, ok)
	assert.Equal(t, document.CollectionTexts, hit.Ref.Collection, "texts are tested first")

	doc.Texts = nil
	hit, ok = HitTest(doc, document.Point{X: 45, Y: 0}, 1)
	require.True(t, ok)
	assert.Equal(t, document.CollectionDetectors, hit.Ref.Collection, "detectors before phases")

	doc.AddDetector(document.LineOf(document.NewLine("D2", document.Point{X: 0, Y: 0}, document.Point{X: 100, Y: 0})))
	hit, _ = HitTest(doc, document.Point{X: 45, Y: 0}, 1)
	assert.Equal(t, 1, hit.Ref.Index, "newest first")
}

func TestNearestSegment(t *testing.T) {
	pts := []document.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}
	assert.Equal(t, 0, NearestSegment(document.Point{X: 50, Y: 5}, pts))
	assert.Equal(t, 1, NearestSegment(document.Point{X: 95, Y: 60}, pts))
	assert.Equal(t, -1, NearestSegment(document.Point{}, pts[:1]))
}

func TestProjectPointClamps(t *testing.T) {
	a, b := document.Point{X: 0, Y: 0}, document.Point{X: 10, Y: 0}
	assert.Equal(t, document.Point{X: 0, Y: 0}, ProjectPoint(document.Point{X: -5, Y: 3}, a, b))
	assert.Equal(t, document.Point{X: 10, Y: 0}, ProjectPoint(document.Point{X: 15, Y: 3}, a, b))
	assert.Equal(t, document.Point{X: 4, Y: 0}, ProjectPoint(document.Point{X: 4, Y: 3}, a, b))
}
