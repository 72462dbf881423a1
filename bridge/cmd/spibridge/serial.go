package main

import (
	"io"
	"machine"
	"runtime"
)

// SerialReadWriter is a blocking io.ReadWriter over a machine.Serialer.
type SerialReadWriter interface {
	io.ReadWriter
}

type serialIO struct {
	machine.Serialer
}

var _ SerialReadWriter = serialIO{}

// WrapSerial wraps a machine.Serialer so that reads block until data is
// available, which is what the packet decoder expects.
func WrapSerial(serial machine.Serialer) SerialReadWriter {
	return serialIO{Serialer: serial}
}

func (s serialIO) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for s.Buffered() == 0 {
		runtime.Gosched()
	}

	var n int
	for n < len(b) && s.Buffered() > 0 {
		c, err := s.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

func (s serialIO) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(b), nil
}
