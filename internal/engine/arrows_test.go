package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siteview/siteview/backend-go/internal/document"
)

func TestArrowHeadShape(t *testing.T) {
	from, tip := document.Point{X: 0, Y: 0}, document.Point{X: 100, Y: 0}

	w := ArrowHead(from, tip, 2)
	assert.Equal(t, tip, w.Apex)
	assert.InDelta(t, w.Left.X, w.Right.X, 1e-9)
	assert.InDelta(t, -w.Left.Y, w.Right.Y, 1e-9)
	assert.Less(t, w.Left.X, tip.X)

	// Small pens get the minimum size of 8; thick pens scale by 3.
	small := Distance(tip, document.Point{X: w.Left.X, Y: 0})
	big := ArrowHead(from, tip, 10)
	large := Distance(tip, document.Point{X: big.Left.X, Y: 0})
	assert.Greater(t, large, small)
	assert.InDelta(t, 8-0.6*8*math.Cos(arrowWing), small, 1e-9)
	assert.InDelta(t, 30-0.6*30*math.Cos(arrowWing), large, 1e-9)
}

func TestPedCrossingHeadsShareApex(t *testing.T) {
	from, tip := document.Point{X: 0, Y: 0}, document.Point{X: 0, Y: 100}
	heads := PedCrossingHeads(from, tip, 4)

	assert.Equal(t, tip, heads[0].Apex)
	assert.Equal(t, tip, heads[1].Apex)
	assert.Less(t, heads[0].Left.Y, tip.Y)
	assert.Greater(t, heads[1].Left.Y, tip.Y)
}

func TestSideArrowDirection(t *testing.T) {
	from, tip := document.Point{X: 0, Y: 0}, document.Point{X: 100, Y: 0}

	left := SideArrow(from, tip, 2, true)
	assert.InDelta(t, 100, left.End.X, 1e-9)
	assert.InDelta(t, -25, left.End.Y, 1e-9)
	assert.InDelta(t, 100-7.5, left.Start.X, 1e-9)
	assert.Equal(t, left.End, left.Head.Apex)

	right := SideArrow(from, tip, 10, false)
	assert.InDelta(t, 40, right.End.Y, 1e-9)
	// The head points away from the line.
	assert.Less(t, right.Head.Left.Y, right.End.Y)
}
