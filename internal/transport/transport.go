// Package transport implements the serial lines that carry pulse buffers to
// the LED. Every transport is an io.WriteCloser; a failed write is final.
package transport

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"libdb.so/spiglow/pulse"
)

// Console logs every pulse buffer instead of sending it anywhere. It is
// meant for running without hardware.
type Console struct {
	logger *slog.Logger
	count  int
}

// NewConsole creates a console transport.
func NewConsole(logger *slog.Logger) *Console {
	return &Console{logger: logger}
}

// Write decodes p back into a color and logs it.
func (c *Console) Write(p []byte) (int, error) {
	if len(p) != pulse.Size {
		return 0, fmt.Errorf("console: expected %d bytes, got %d", pulse.Size, len(p))
	}

	var buf pulse.Buffer
	copy(buf[:], p)

	packed, err := pulse.Decode(buf)
	if err != nil {
		return 0, errors.Wrap(err, "console: undecodable pulse")
	}

	c.count++
	r, g, b := packed.Channels()
	c.logger.Info(
		"led",
		"frame", c.count,
		"packed", packed.String(),
		"rgb", fmt.Sprintf("#%02x%02x%02x", r, g, b),
		"pulse", buf.String())

	return len(p), nil
}

// Close implements io.Closer.
func (c *Console) Close() error { return nil }
