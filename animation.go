package spiglow

import (
	"time"

	"libdb.so/spiglow/pulse"
)

// DefaultDelay is the pause between two frames.
const DefaultDelay = 500 * time.Millisecond

// DefaultPalette is the cycle of base colors shown by the LED.
var DefaultPalette = []Color{Black, Red, White, Blue}

// Frame is one animation step, ready to be written to the LED.
type Frame struct {
	// Base is the palette color before dimming.
	Base Color
	// Scaled is Base dimmed by Brightness.
	Scaled     Color
	Brightness Brightness
	Packed     pulse.Packed
	Pulse      pulse.Buffer
	// Delay is how long to wait after writing Pulse.
	Delay time.Duration
}

// Animator cycles through a palette while ramping up the brightness. All of
// its state lives in the struct, so stepping it needs neither a transport
// nor a clock.
type Animator struct {
	palette    []Color
	index      int
	brightness Brightness
	delay      time.Duration
}

// NewAnimator creates an animator. It panics if palette is empty.
func NewAnimator(palette []Color, limit uint8, delay time.Duration) *Animator {
	if len(palette) == 0 {
		panic("spiglow: empty palette")
	}
	return &Animator{
		palette:    append([]Color(nil), palette...),
		brightness: Brightness{Limit: limit},
		delay:      delay,
	}
}

// Step produces the next frame. The brightness keeps counting across
// palette entries, and the palette restarts after its last entry.
func (a *Animator) Step() Frame {
	a.brightness = a.brightness.Next()

	base := a.palette[a.index]
	a.index = (a.index + 1) % len(a.palette)

	scaled := base.Scale(a.brightness)
	packed := scaled.Pack()

	return Frame{
		Base:       base,
		Scaled:     scaled,
		Brightness: a.brightness,
		Packed:     packed,
		Pulse:      pulse.Encode(packed),
		Delay:      a.delay,
	}
}

// Brightness returns the brightness of the last frame.
func (a *Animator) Brightness() Brightness {
	return a.brightness
}

// Index returns the palette index of the next frame.
func (a *Animator) Index() int {
	return a.index
}
