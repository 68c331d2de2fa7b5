package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/siteview/siteview/backend-go/internal/document"
)

func vec(p document.Point) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func point(v r2.Vec) document.Point {
	return document.Point{X: v.X, Y: v.Y}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b document.Point) float64 {
	return r2.Norm(r2.Sub(vec(a), vec(b)))
}

// ProjectPoint returns the point on segment ab closest to p.
func ProjectPoint(p, a, b document.Point) document.Point {
	ab := r2.Sub(vec(b), vec(a))
	len2 := r2.Dot(ab, ab)
	if len2 < 1e-3 {
		return a
	}
	t := r2.Dot(r2.Sub(vec(p), vec(a)), ab) / len2
	t = math.Max(0, math.Min(1, t))
	return point(r2.Add(vec(a), r2.Scale(t, ab)))
}

// NearestSegment returns the index i of the segment (pts[i], pts[i+1])
// closest to p, or -1 when there are fewer than two points.
func NearestSegment(p document.Point, pts []document.Point) int {
	best := -1
	bestDist := math.MaxFloat64
	for i := 0; i < len(pts)-1; i++ {
		d := Distance(p, ProjectPoint(p, pts[i], pts[i+1]))
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// angle returns the direction from a to b in radians.
func angle(a, b document.Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// polar returns p moved by dist along direction theta.
func polar(p document.Point, theta, dist float64) document.Point {
	return document.Point{X: p.X + dist*math.Cos(theta), Y: p.Y + dist*math.Sin(theta)}
}
