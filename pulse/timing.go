package pulse

import (
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// DefaultFrequency gives a 0.4µs SPI bit, the nominal WS2812 time unit.
const DefaultFrequency = 2500 * physic.KiloHertz

// Tolerance is the allowed deviation of every pulse width.
const Tolerance = 150 * time.Nanosecond

// Nominal WS2812 pulse widths.
const (
	NominalT0H = 400 * time.Nanosecond
	NominalT0L = 850 * time.Nanosecond
	NominalT1H = 800 * time.Nanosecond
	NominalT1L = 450 * time.Nanosecond
)

// ErrTiming is returned when a clock frequency produces pulse widths outside
// the LED's tolerance.
var ErrTiming = errors.New("pulse widths out of tolerance")

// Timing holds the pulse widths produced by the 3-bit symbols at a given SPI
// clock.
type Timing struct {
	Frequency physic.Frequency
	T0H, T0L  time.Duration
	T1H, T1L  time.Duration
}

// TimingFor derives the pulse widths for the SPI clock frequency f.
func TimingFor(f physic.Frequency) Timing {
	var unit time.Duration
	if hz := int64(f / physic.Hertz); hz > 0 {
		unit = time.Duration(int64(time.Second) / hz)
	}
	return Timing{
		Frequency: f,
		T0H:       unit,
		T0L:       2 * unit,
		T1H:       2 * unit,
		T1L:       unit,
	}
}

// Validate checks every pulse width against the nominal value.
func (t Timing) Validate() error {
	checks := []struct {
		name      string
		got, want time.Duration
	}{
		{"T0H", t.T0H, NominalT0H},
		{"T0L", t.T0L, NominalT0L},
		{"T1H", t.T1H, NominalT1H},
		{"T1L", t.T1L, NominalT1L},
	}
	for _, c := range checks {
		d := c.got - c.want
		if d < 0 {
			d = -d
		}
		if d > Tolerance {
			return errors.Wrapf(ErrTiming, "%s is %v at %s, want %v±%v",
				c.name, c.got, t.Frequency, c.want, Tolerance)
		}
	}
	return nil
}
