// Command spibridge is the firmware of the serial bridge. It reads ledserial
// packets from the USB serial port and clocks their pulse buffers out of
// SPI0, whose SDO pin drives the LED's data line.
//
// Build with TinyGo, e.g. tinygo flash -target xiao-rp2040 ./cmd/spibridge
package main

import "machine"

func main() {
	d := NewDevice(machine.Serial, machine.SPI0, machine.SPI0_SDO_PIN)
	d.Run()
}
