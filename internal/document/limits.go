package document

import "math"

const (
	DefaultLineThickness   = 10
	DefaultTurnLength      = 35.0
	DefaultSquareSize      = 40.0
	DefaultSquareThickness = 6
	DefaultFontName        = "Arial"
	DefaultFontSize        = 18
	DefaultTextLabel       = "Text Label"
	DefaultImageFile       = "layout.png"

	MinLineThickness = 2
	MaxLineThickness = 30

	// Squares are resized by dragging the corner up to MaxSquareDragSize but
	// the wheel only grows them up to MaxSquareWheelSize.
	MinSquareSize      = 8.0
	MaxSquareDragSize  = 600.0
	MaxSquareWheelSize = 400.0

	MinFontSize = 8
	MaxFontSize = 72
)

var DefaultSquareFill = Color{R: 0, G: 0, B: 255}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapDegrees maps any angle into [0, 360).
func WrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}
