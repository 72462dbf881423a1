// Package ledserial implements the serial bridge protocol. A bridge is a
// microcontroller that receives pulse buffers over a serial line and clocks
// them out of its own SPI port.
//
// Every packet is a type byte, a payload and a little-endian CRC-32 (IEEE)
// of the type byte and payload.
package ledserial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// ErrChecksum is returned when a packet's checksum does not match.
var ErrChecksum = errors.New("packet checksum mismatch")

// MaxPulseLength is the largest pulse payload a packet can carry.
const MaxPulseLength = 1<<16 - 1

// IncomingPacketType is the type of a packet sent to the bridge.
type IncomingPacketType uint8

const (
	TypeConfigurePacket IncomingPacketType = iota
	TypeClearPacket
	TypePulsePacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeConfigurePacket:
		return "configure"
	case TypeClearPacket:
		return "clear"
	case TypePulsePacket:
		return "pulse"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent to the bridge.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// ConfigurePacket sets the bridge's SPI clock.
type ConfigurePacket struct {
	FrequencyHz uint32
}

// ClearPacket asks the bridge to turn the LED off.
type ClearPacket struct{}

// PulsePacket carries raw bytes to clock out of the bridge's SPI port.
type PulsePacket struct {
	Pulse []byte
}

func (p ConfigurePacket) Type() IncomingPacketType { return TypeConfigurePacket }
func (p ClearPacket) Type() IncomingPacketType     { return TypeClearPacket }
func (p PulsePacket) Type() IncomingPacketType     { return TypePulsePacket }

// OutgoingPacketType is the type of a packet sent by the bridge.
type OutgoingPacketType uint8

const (
	TypeAckPacket OutgoingPacketType = iota
	TypeErrorPacket
	TypePanicPacket
	TypeLogPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeAckPacket:
		return "ack"
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent by the bridge.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// AckPacket acknowledges a handled incoming packet.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

// ErrorPacket reports a recoverable error on the bridge.
type ErrorPacket struct {
	Message string
}

// PanicPacket indicates the bridge cannot recover.
type PanicPacket struct{}

// LogPacket carries a log line from the bridge.
type LogPacket struct {
	Message string
}

func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }
func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }

// ReadIncomingPacket reads a packet sent to the bridge.
func ReadIncomingPacket(r io.Reader) (IncomingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read incoming packet type")
	}

	var packet IncomingPacket
	switch ptype := IncomingPacketType(ptypeBuf[0]); ptype {
	case TypeConfigurePacket:
		var p ConfigurePacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, errors.Wrap(err, "failed to read frequency")
		}
		packet = p

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypePulsePacket:
		b, err := readBytes(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read pulse data")
		}
		packet = PulsePacket{Pulse: b}

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteIncomingPacket writes a packet to the bridge.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if err := binary.Write(mw, Endianness, p.Type()); err != nil {
		return errors.Wrap(err, "failed to write packet type")
	}

	switch p := p.(type) {
	case ConfigurePacket:
		if err := binary.Write(mw, Endianness, p); err != nil {
			return errors.Wrap(err, "failed to write packet")
		}
	case ClearPacket:
	case PulsePacket:
		if err := writeBytes(mw, p.Pulse); err != nil {
			return errors.Wrap(err, "failed to write pulse data")
		}
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return errors.Wrap(err, "failed to write packet checksum")
	}

	return nil
}

// ReadOutgoingPacket reads a packet sent by the bridge.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read outgoing packet type")
	}

	var packet OutgoingPacket
	switch ptype := OutgoingPacketType(ptypeBuf[0]); ptype {
	case TypeAckPacket:
		var p AckPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, errors.Wrap(err, "failed to read acked packet type")
		}
		packet = p

	case TypeErrorPacket:
		msg, err := readBytes(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read error message")
		}
		packet = ErrorPacket{Message: string(msg)}

	case TypePanicPacket:
		packet = PanicPacket{}

	case TypeLogPacket:
		msg, err := readBytes(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read log message")
		}
		packet = LogPacket{Message: string(msg)}

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteOutgoingPacket writes a packet from the bridge.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if err := binary.Write(mw, Endianness, p.Type()); err != nil {
		return errors.Wrap(err, "failed to write packet type")
	}

	switch p := p.(type) {
	case AckPacket:
		if err := binary.Write(mw, Endianness, p); err != nil {
			return errors.Wrap(err, "failed to write packet")
		}
	case ErrorPacket:
		if err := writeBytes(mw, []byte(p.Message)); err != nil {
			return errors.Wrap(err, "failed to write error message")
		}
	case PanicPacket:
	case LogPacket:
		if err := writeBytes(mw, []byte(p.Message)); err != nil {
			return errors.Wrap(err, "failed to write log message")
		}
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return errors.Wrap(err, "failed to write packet checksum")
	}

	return nil
}

// readChecksum reads the trailing checksum. It must be called with the sum
// taken before the checksum itself goes through the tee.
func readChecksum(r io.Reader, sum uint32) error {
	var checksum uint32
	if err := binary.Read(r, Endianness, &checksum); err != nil {
		return errors.Wrap(err, "failed to read packet checksum")
	}
	if checksum != sum {
		return ErrChecksum
	}
	return nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var length uint16
	if err := binary.Read(r, Endianness, &length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if len(b) > MaxPulseLength {
		return fmt.Errorf("payload of %d bytes is too long", len(b))
	}
	if err := binary.Write(w, Endianness, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
