package spiglow

import (
	"encoding"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"libdb.so/spiglow/pulse"
)

// Color is an 8-bit per channel RGB color. There is no alpha channel; use
// Brightness to dim it.
type Color struct {
	R, G, B uint8
}

var (
	_ encoding.TextUnmarshaler = (*Color)(nil)
	_ encoding.TextMarshaler   = Color{}
)

// Some colors used by the default palette.
var (
	Black = Color{}
	Red   = Color{R: 255}
	Green = Color{G: 255}
	Blue  = Color{B: 255}
	White = Color{R: 255, G: 255, B: 255}
)

// ParseColor parses a hex color such as "#00ff00".
func ParseColor(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, errors.Wrapf(err, "invalid color %q", s)
	}
	r, g, b := c.RGB255()
	return Color{r, g, b}, nil
}

// Scale multiplies every channel by the brightness scale and truncates the
// result.
func (c Color) Scale(b Brightness) Color {
	s := b.Scale()
	return Color{
		R: uint8(float32(c.R) * s),
		G: uint8(float32(c.G) * s),
		B: uint8(float32(c.B) * s),
	}
}

// Pack lays out the color for the wire. See pulse.Packed.
func (c Color) Pack() pulse.Packed {
	return pulse.Pack(c.R, c.G, c.B)
}

// String returns the color as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// DefaultBrightnessLimit keeps the LED at roughly 39% of full intensity,
// since brightness is divided by 255 when scaling.
const DefaultBrightnessLimit = 100

// Brightness is a dimming counter. It counts up by one per frame and wraps to
// zero when it reaches Limit.
type Brightness struct {
	Value uint8
	// Limit is the exclusive upper bound of Value. Zero means
	// DefaultBrightnessLimit.
	Limit uint8
}

// Next advances the counter by one and returns the new brightness.
func (b Brightness) Next() Brightness {
	limit := b.Limit
	if limit == 0 {
		limit = DefaultBrightnessLimit
	}
	// wrapping add, then clamp into [0, limit)
	b.Value++
	if b.Value >= limit {
		b.Value = 0
	}
	return b
}

// Scale returns Value / 255.
func (b Brightness) Scale() float32 {
	return float32(b.Value) / 255.0
}

// Percent returns the scale as a percentage, for diagnostics.
func (b Brightness) Percent() float32 {
	return b.Scale() * 100
}
