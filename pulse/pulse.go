// Package pulse encodes a 24-bit LED color into the SPI byte stream that
// reproduces the WS2812 single-wire pulse codes.
//
// Every color bit becomes a 3-bit symbol: 110 for a one (long high, short
// low) and 100 for a zero (short high, long low). Clocked at about 2.5MHz,
// one SPI bit lasts 0.4µs, which puts both codes inside the LED's tolerance.
package pulse

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	// Bits is the number of color bits in a packed value.
	Bits = 24
	// SymbolBits is the number of SPI bits used per color bit.
	SymbolBits = 3
	// Size is the length of an encoded buffer in bytes.
	Size = Bits * SymbolBits / 8
)

const (
	// SymbolOne is the 3-bit code for a set bit.
	SymbolOne uint8 = 0b110
	// SymbolZero is the 3-bit code for a cleared bit.
	SymbolZero uint8 = 0b100
)

// ErrInvalidSymbol is returned by Decode when a 3-bit group is neither
// SymbolOne nor SymbolZero.
var ErrInvalidSymbol = errors.New("invalid pulse symbol")

// Packed is a color laid out the way the LED expects it on the wire: green
// in bits 16-23, red in bits 8-15 and blue in bits 0-7.
type Packed uint32

// Pack assembles a Packed value from its channels.
func Pack(r, g, b uint8) Packed {
	return Packed(b) | Packed(r)<<8 | Packed(g)<<16
}

// Channels splits p back into red, green and blue.
func (p Packed) Channels() (r, g, b uint8) {
	return uint8(p >> 8), uint8(p >> 16), uint8(p)
}

// String formats p as 0xGGRRBB.
func (p Packed) String() string {
	return fmt.Sprintf("0x%06X", uint32(p)&0xFFFFFF)
}

// Buffer is the encoded pulse train for one LED. Symbol i, the code for bit
// i of the packed color, starts at bit 3*i counted from the least
// significant bit of the last byte, so bit 23 goes out first on an MSB-first
// SPI port.
type Buffer [Size]byte

// String formats b as space separated hex bytes.
func (b Buffer) String() string {
	return fmt.Sprintf("% x", b[:])
}

// Encode encodes the low 24 bits of p. Higher bits are ignored.
func Encode(p Packed) Buffer {
	var b Buffer
	for i := 0; i < Bits; i++ {
		sym := SymbolZero
		if p>>i&1 == 1 {
			sym = SymbolOne
		}
		putSymbol(&b, i, sym)
	}
	return b
}

// Decode recovers the packed color from an encoded buffer.
func Decode(b Buffer) (Packed, error) {
	var p Packed
	for i := 0; i < Bits; i++ {
		switch sym := SymbolAt(b, i); sym {
		case SymbolOne:
			p |= 1 << i
		case SymbolZero:
		default:
			return 0, errors.Wrapf(ErrInvalidSymbol, "symbol %d is %03b", i, sym)
		}
	}
	return p, nil
}

// SymbolAt returns the 3-bit group that encodes bit i. It panics if i is out
// of [0, Bits).
func SymbolAt(b Buffer, i int) uint8 {
	if i < 0 || i >= Bits {
		panic(fmt.Sprintf("pulse: symbol index %d out of range", i))
	}
	var sym uint8
	for j := 0; j < SymbolBits; j++ {
		byteIx, shift := bitPos(i*SymbolBits + j)
		sym |= (b[byteIx] >> shift & 1) << j
	}
	return sym
}

func putSymbol(b *Buffer, i int, sym uint8) {
	for j := 0; j < SymbolBits; j++ {
		byteIx, shift := bitPos(i*SymbolBits + j)
		b[byteIx] |= (sym >> j & 1) << shift
	}
}

// bitPos maps a bit offset counted from the least significant end of the
// buffer to a byte index and a shift within that byte.
func bitPos(off int) (byteIx int, shift uint) {
	return Size - 1 - off/8, uint(off % 8)
}
