package spiglow

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/spiglow/pulse"
	"periph.io/x/conn/v3/physic"
)

// TransportKind selects how pulse buffers reach the LED.
type TransportKind string

const (
	// SPITransport writes to a local SPI port.
	SPITransport TransportKind = "spi"
	// SerialTransport sends pulses to a microcontroller bridge over a serial
	// line using the ledserial protocol.
	SerialTransport TransportKind = "serial"
	// ConsoleTransport only logs the pulses.
	ConsoleTransport TransportKind = "console"
)

// Config is the configuration for the spiglow daemon.
type Config struct {
	// Transport is the kind of transport to use.
	Transport TransportKind `toml:"transport"`
	// Device is the SPI port name or the serial device path. An empty SPI
	// port name means the first available port.
	Device string `toml:"device"`
	// Baud is the baud rate of the serial bridge.
	Baud int `toml:"baud"`
	// Frequency is the SPI clock. One SPI bit is one pulse time unit.
	Frequency Frequency `toml:"frequency"`
	// Delay is the pause after every frame.
	Delay TOMLDuration `toml:"delay"`
	// Heartbeat is the period of the heartbeat task.
	Heartbeat TOMLDuration `toml:"heartbeat"`
	// Settle is how long to wait before the first frame. Zero skips the
	// wait.
	Settle TOMLDuration `toml:"settle"`
	// BrightnessLimit is the exclusive upper bound of the brightness ramp.
	BrightnessLimit int `toml:"brightness_limit"`
	// Palette is the list of colors to cycle through, given in the file as
	// hex strings. It is decoded by ParseConfig.
	Palette []Color `toml:"-"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Transport:       SPITransport,
		Baud:            115200,
		Frequency:       Frequency(pulse.DefaultFrequency),
		Delay:           TOMLDuration(DefaultDelay),
		Heartbeat:       TOMLDuration(time.Second),
		Settle:          TOMLDuration(100 * time.Millisecond),
		BrightnessLimit: DefaultBrightnessLimit,
		Palette:         append([]Color(nil), DefaultPalette...),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Transport {
	case SPITransport, ConsoleTransport:
	case SerialTransport:
		if c.Device == "" {
			return errors.New("serial transport needs a device")
		}
		if c.Baud <= 0 {
			return fmt.Errorf("invalid baud rate %d", c.Baud)
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}

	if err := pulse.TimingFor(c.Frequency.Physic()).Validate(); err != nil {
		return errors.Wrap(err, "unusable SPI frequency")
	}

	if len(c.Palette) == 0 {
		return errors.New("no palette colors configured")
	}

	if c.Delay <= 0 {
		return fmt.Errorf("delay must be positive, got %v", time.Duration(c.Delay))
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %v", time.Duration(c.Heartbeat))
	}
	if c.Settle < 0 {
		return fmt.Errorf("settle must not be negative, got %v", time.Duration(c.Settle))
	}
	if c.BrightnessLimit < 1 || c.BrightnessLimit > 255 {
		return fmt.Errorf("brightness_limit %d out of range [1, 255]", c.BrightnessLimit)
	}

	return nil
}

// Frequency is a physic.Frequency that can be parsed from TOML, e.g.
// "2.5MHz".
type Frequency physic.Frequency

var (
	_ encoding.TextUnmarshaler = (*Frequency)(nil)
	_ encoding.TextMarshaler   = (*Frequency)(nil)
)

// Physic returns f as a physic.Frequency.
func (f Frequency) Physic() physic.Frequency {
	return physic.Frequency(f)
}

func (f *Frequency) UnmarshalText(text []byte) error {
	var v physic.Frequency
	if err := v.Set(string(text)); err != nil {
		return err
	}
	*f = Frequency(v)
	return nil
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(physic.Frequency(f).String()), nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Keys missing from the
// file take their DefaultConfig values.
func ParseConfig(r io.Reader) (*Config, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := tree.Unmarshal(&config); err != nil {
		return nil, err
	}

	if tree.Has("palette") {
		palette, err := parsePalette(tree.Get("palette"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid palette")
		}
		config.Palette = palette
	}

	config.fillDefaults(tree)
	return &config, nil
}

// parsePalette converts a TOML array of hex strings into colors.
func parsePalette(v interface{}) ([]Color, error) {
	var values []interface{}
	switch v := v.(type) {
	case []interface{}:
		values = v
	case []string:
		for _, s := range v {
			values = append(values, s)
		}
	default:
		return nil, fmt.Errorf("expected an array of strings, got %T", v)
	}

	palette := make([]Color, 0, len(values))
	for i, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected a string, got %T", i, value)
		}
		c, err := ParseColor(s)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		palette = append(palette, c)
	}
	return palette, nil
}

// fillDefaults sets every key absent from tree to its default value.
func (c *Config) fillDefaults(tree *toml.Tree) {
	def := DefaultConfig()
	if !tree.Has("transport") {
		c.Transport = def.Transport
	}
	if !tree.Has("baud") {
		c.Baud = def.Baud
	}
	if !tree.Has("frequency") {
		c.Frequency = def.Frequency
	}
	if !tree.Has("delay") {
		c.Delay = def.Delay
	}
	if !tree.Has("heartbeat") {
		c.Heartbeat = def.Heartbeat
	}
	if !tree.Has("settle") {
		c.Settle = def.Settle
	}
	if !tree.Has("brightness_limit") {
		c.BrightnessLimit = def.BrightnessLimit
	}
	if !tree.Has("palette") {
		c.Palette = def.Palette
	}
}
