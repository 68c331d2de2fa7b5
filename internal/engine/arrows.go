package engine

import (
	"math"

	"github.com/siteview/siteview/backend-go/internal/document"
)

const arrowWing = math.Pi / 6.5

// Wedge is a filled triangle; Apex is the point the arrow points at.
type Wedge struct {
	Left  document.Point `json:"left"`
	Apex  document.Point `json:"apex"`
	Right document.Point `json:"right"`
}

// Points returns the wedge corners in drawing order.
func (w Wedge) Points() []document.Point {
	return []document.Point{w.Left, w.Apex, w.Right}
}

// ArrowHead builds the wedge that sits on tip, pointing along from→tip.
func ArrowHead(from, tip document.Point, penWidth float64) Wedge {
	size := math.Max(8, penWidth*3)
	return wedgeAt(tip, angle(from, tip), size)
}

// PedCrossingHeads returns the forward wedge at tip and the reverse wedge
// built from the same apex. The two overlap on screen.
func PedCrossingHeads(from, tip document.Point, penWidth float64) [2]Wedge {
	size := math.Max(8, penWidth*3)
	return [2]Wedge{
		wedgeAt(tip, angle(from, tip), size),
		wedgeAt(tip, angle(tip, from), size),
	}
}

func wedgeAt(apex document.Point, theta, size float64) Wedge {
	back := polar(apex, theta, -size)
	return Wedge{
		Left:  polar(back, theta+arrowWing, size*0.6),
		Apex:  apex,
		Right: polar(back, theta-arrowWing, size*0.6),
	}
}

// TurnStub is the curved side arrow drawn for left/right turns: a cubic
// bezier from Start to End ending in Head, which points away from the line.
type TurnStub struct {
	Start document.Point `json:"start"`
	Ctrl1 document.Point `json:"ctrl1"`
	Ctrl2 document.Point `json:"ctrl2"`
	End   document.Point `json:"end"`
	Head  Wedge          `json:"head"`
}

// SideArrow builds the turn stub near tip. left selects the side relative to
// the travel direction from→tip (screen coordinates, y down).
func SideArrow(from, tip document.Point, penWidth float64, left bool) TurnStub {
	theta := angle(from, tip)
	normal := theta + math.Pi/2
	if left {
		normal = theta - math.Pi/2
	}

	extent := math.Max(25, penWidth*4)
	size := math.Max(8, penWidth*3)

	start := polar(tip, theta, -extent*0.3)
	end := polar(tip, normal, extent)
	return TurnStub{
		Start: start,
		Ctrl1: polar(start, theta, extent*0.7),
		Ctrl2: polar(end, normal, -extent*0.5),
		End:   end,
		Head:  wedgeAt(end, normal, size),
	}
}
