package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Color is an opaque 24-bit RGB colour.
type Color struct {
	R, G, B uint8
}

var Black = Color{}

// ParseColor accepts "#RRGGBB", "#RGB" and CSS colour names such as "Black"
// (some exporters write named colours instead of hex).
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, fmt.Errorf("empty colour")
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return Color{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return Color{R: r, G: g, B: b}, nil
	}
	if named, ok := colornames.Map[strings.ToLower(s)]; ok {
		return Color{R: named.R, G: named.G, B: named.B}, nil
	}
	return Color{}, fmt.Errorf("unknown colour %q", s)
}

// Hex returns the colour as "#RRGGBB".
func (c Color) Hex() string {
	return strings.ToUpper(colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex())
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
