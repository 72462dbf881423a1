package main

import (
	"fmt"
	"machine"

	"libdb.so/spiglow/ledserial"
	"libdb.so/spiglow/pulse"
)

// Device stores the current state of the bridge.
type Device struct {
	serial SerialReadWriter
	spi    *machine.SPI
	sdo    machine.Pin

	configured bool
}

// NewDevice creates a new bridge device.
func NewDevice(serial machine.Serialer, spi *machine.SPI, sdo machine.Pin) *Device {
	return &Device{
		serial: WrapSerial(serial),
		spi:    spi,
		sdo:    sdo,
	}
}

// Run runs the device loop forever.
func (d *Device) Run() {
	for {
		p, err := d.readPacket()
		if err != nil {
			d.logError(err)
			continue
		}

		if err := d.handlePacket(p); err != nil {
			d.logError(err)
			continue
		}

		d.sendPacket(ledserial.AckPacket{
			IncomingPacketType: p.Type(),
		})
	}
}

func (d *Device) log(msg string) {
	d.sendPacket(ledserial.LogPacket{Message: msg})
}

func (d *Device) logError(err error) {
	d.sendPacket(ledserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) sendPacket(p ledserial.OutgoingPacket) {
	ledserial.WriteOutgoingPacket(d.serial, p)
}

func (d *Device) readPacket() (ledserial.IncomingPacket, error) {
	statusOn()
	defer statusOff()

	return ledserial.ReadIncomingPacket(d.serial)
}

func (d *Device) handlePacket(p ledserial.IncomingPacket) error {
	switch p := p.(type) {
	case ledserial.ConfigurePacket:
		if p.FrequencyHz == 0 {
			return fmt.Errorf("invalid SPI frequency: %d", p.FrequencyHz)
		}
		if err := d.spi.Configure(machine.SPIConfig{
			Frequency: p.FrequencyHz,
			SDO:       d.sdo,
			Mode:      0,
		}); err != nil {
			return fmt.Errorf("failed to configure SPI: %w", err)
		}
		d.configured = true
		d.log(fmt.Sprintf("SPI clocked at %d Hz", p.FrequencyHz))
		return nil

	case ledserial.ClearPacket:
		off := pulse.Encode(0)
		return d.tx(off[:])

	case ledserial.PulsePacket:
		return d.tx(p.Pulse)

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
}

func (d *Device) tx(b []byte) error {
	if !d.configured {
		return fmt.Errorf("SPI not configured")
	}
	return d.spi.Tx(b, nil)
}
