package canvas

import (
	"fmt"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"
)

// RGB is an opaque colour. Alpha travels separately in Style.
type RGB struct {
	R, G, B uint8
}

var (
	Black       = RGB{}
	White       = FromColor(colornames.White)
	Red         = FromColor(colornames.Red)
	ForestGreen = FromColor(colornames.Forestgreen)
	Gray75      = RGB{75, 75, 75}
)

func FromColor(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

// RGBA returns the colour with alpha in [0, 1] applied, non-premultiplied.
func (c RGB) RGBA(alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(clamp01(alpha)*255 + 0.5)}
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string { return c.Hex() }

// ParseRGB accepts "#rrggbb", "rrggbb" or an SVG colour name.
func ParseRGB(s string) (RGB, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if named, ok := colornames.Map[s]; ok {
		return FromColor(named), nil
	}
	hex := strings.TrimPrefix(s, "#")
	var c RGB
	if len(hex) != 6 {
		return c, fmt.Errorf("canvas: invalid colour %q", s)
	}
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("canvas: invalid colour %q: %w", s, err)
	}
	return c, nil
}

func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *RGB) UnmarshalText(b []byte) error {
	v, err := ParseRGB(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
