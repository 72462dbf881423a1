package ledserial

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingPackets(t *testing.T) {
	packets := []IncomingPacket{
		ConfigurePacket{FrequencyHz: 2_500_000},
		ClearPacket{},
		PulsePacket{Pulse: []byte{0x92, 0x49, 0x24, 0x92, 0x49, 0x24, 0x92, 0x49, 0x24}},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, WriteIncomingPacket(&buf, p))
	}

	for _, want := range packets {
		got, err := ReadIncomingPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, buf.Len())
}

func TestOutgoingPackets(t *testing.T) {
	packets := []OutgoingPacket{
		AckPacket{IncomingPacketType: TypePulsePacket},
		ErrorPacket{Message: "spi busy"},
		PanicPacket{},
		LogPacket{Message: "hello"},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, WriteOutgoingPacket(&buf, p))
	}

	for _, want := range packets {
		got, err := ReadOutgoingPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPulsePacketLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIncomingPacket(&buf, PulsePacket{Pulse: []byte{0xAA, 0xBB}}))

	b := buf.Bytes()
	require.Len(t, b, 1+2+2+4)
	assert.Equal(t, []byte{byte(TypePulsePacket), 2, 0, 0xAA, 0xBB}, b[:5])
}

func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIncomingPacket(&buf, ConfigurePacket{FrequencyHz: 2_500_000}))

	b := buf.Bytes()
	b[1] ^= 0xFF

	_, err := ReadIncomingPacket(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestUnknownPacketType(t *testing.T) {
	_, err := ReadOutgoingPacket(bytes.NewReader([]byte{0xFF}))
	assert.Error(t, err)

	_, err = ReadIncomingPacket(bytes.NewReader([]byte{0xFF}))
	assert.Error(t, err)
}

func TestShortRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutgoingPacket(&buf, LogPacket{Message: "truncated"}))

	_, err := ReadOutgoingPacket(bytes.NewReader(buf.Bytes()[:4]))
	assert.Error(t, err)
}

func TestPacketTypeStrings(t *testing.T) {
	assert.Equal(t, "pulse", TypePulsePacket.String())
	assert.Equal(t, "ack", TypeAckPacket.String())
	assert.Equal(t, "IncomingPacketType(9)", IncomingPacketType(9).String())
}
