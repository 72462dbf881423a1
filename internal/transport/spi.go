package transport

import (
	"io"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// SPI writes pulse buffers to an SPI port. Only MOSI is used.
type SPI struct {
	conn spi.Conn
	port io.Closer
}

// OpenSPI opens the SPI port with the given name and clocks it at f in mode
// 0 with 8-bit words. An empty name opens the first port.
func OpenSPI(name string, f physic.Frequency) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize host drivers")
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %q", name)
	}

	conn, err := port.Connect(f, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, errors.Wrapf(err, "failed to configure SPI port at %s", f)
	}

	return NewSPI(conn, port), nil
}

// NewSPI wraps an already configured connection. port is closed by Close and
// may be nil.
func NewSPI(conn spi.Conn, port io.Closer) *SPI {
	return &SPI{conn: conn, port: port}
}

// Write clocks p out in a single transaction.
func (s *SPI) Write(p []byte) (int, error) {
	if err := s.conn.Tx(p, nil); err != nil {
		return 0, errors.Wrap(err, "SPI write failed")
	}
	return len(p), nil
}

// Close releases the port.
func (s *SPI) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
