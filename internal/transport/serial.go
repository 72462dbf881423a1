package transport

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/spiglow/ledserial"
	"periph.io/x/conn/v3/physic"
)

// AckTimeout is how long the serial bridge has to answer a packet.
const AckTimeout = time.Second

// ErrTimeout is returned when the bridge does not answer in time.
var ErrTimeout = errors.New("timed out waiting for bridge")

// Serial sends pulse buffers to a bridge microcontroller over a serial line.
// Every packet must be acknowledged before the next one is sent.
type Serial struct {
	r      io.Reader
	w      io.Writer
	c      io.Closer
	logger *slog.Logger
}

// OpenSerial opens the serial device and tells the bridge to clock its SPI
// port at f.
func OpenSerial(device string, baud int, f physic.Frequency, logger *slog.Logger) (*Serial, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if err := port.SetReadTimeout(AckTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to set read timeout")
	}

	s := NewSerial(timeoutReader{port}, port, port, logger)
	if err := s.Configure(f); err != nil {
		port.Close()
		return nil, err
	}

	return s, nil
}

// NewSerial creates a bridge transport over an existing connection. c may be
// nil.
func NewSerial(r io.Reader, w io.Writer, c io.Closer, logger *slog.Logger) *Serial {
	return &Serial{r: r, w: w, c: c, logger: logger}
}

// Configure sets the bridge's SPI clock.
func (s *Serial) Configure(f physic.Frequency) error {
	return s.exchange(ledserial.ConfigurePacket{
		FrequencyHz: uint32(f / physic.Hertz),
	})
}

// Clear turns the LED off through the bridge.
func (s *Serial) Clear() error {
	return s.exchange(ledserial.ClearPacket{})
}

// Write sends p as a single pulse packet.
func (s *Serial) Write(p []byte) (int, error) {
	if err := s.exchange(ledserial.PulsePacket{Pulse: p}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying connection.
func (s *Serial) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

func (s *Serial) exchange(p ledserial.IncomingPacket) error {
	s.logger.Debug(
		"writing packet",
		"type", p.Type())

	if err := ledserial.WriteIncomingPacket(s.w, p); err != nil {
		return errors.Wrapf(err, "failed to write %s packet", p.Type())
	}

	for {
		reply, err := ledserial.ReadOutgoingPacket(s.r)
		if err != nil {
			return errors.Wrapf(err, "failed to read reply to %s packet", p.Type())
		}

		switch reply := reply.(type) {
		case ledserial.AckPacket:
			if reply.IncomingPacketType != p.Type() {
				return errors.Errorf("bridge acked %s, expected %s", reply.IncomingPacketType, p.Type())
			}
			return nil

		case ledserial.LogPacket:
			s.logger.Info(
				"received log packet from bridge",
				"message", reply.Message)

		case ledserial.ErrorPacket:
			return errors.Errorf("bridge reported error: %s", reply.Message)

		case ledserial.PanicPacket:
			return errors.New("bridge panicked")

		default:
			return errors.Errorf("received unknown packet from bridge: %s", reply.Type())
		}
	}
}

// timeoutReader turns the empty reads go.bug.st/serial returns on a read
// timeout into ErrTimeout.
type timeoutReader struct {
	io.Reader
}

func (r timeoutReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrTimeout
	}
	return n, err
}
