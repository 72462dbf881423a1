package main

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// The XIAO RP2040 has its own WS2812 next to the USB port. It lights up while
// the bridge waits for a packet.
var (
	statusLED        ws2812.Device
	statusLEDPower   = machine.GPIO11
	statusLEDReady   bool
	statusLEDPattern = [3]uint8{0, 0, 32} // dim blue, GRB order
)

func initStatusLED() {
	if statusLEDReady {
		return
	}
	// https://wiki.seeedstudio.com/XIAO-RP2040-with-Arduino/
	statusLEDPower.Configure(machine.PinConfig{Mode: machine.PinOutput})
	statusLEDPower.Low()

	machine.GPIO12.Configure(machine.PinConfig{Mode: machine.PinOutput})
	statusLED = ws2812.New(machine.GPIO12)
	statusLEDReady = true
}

func statusOn() {
	initStatusLED()
	statusLEDPower.High()
	for _, c := range statusLEDPattern {
		statusLED.WriteByte(c)
	}
}

func statusOff() {
	initStatusLED()
	statusLEDPower.Low()
}
