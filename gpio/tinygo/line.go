//go:build tinygo

// Package tinygo drives the DS1302 lines from microcontroller pins.
package tinygo

import (
	"machine"

	"github.com/mklimuk/ds1302"
	"periph.io/x/conn/v3/gpio"
)

// Line is a microcontroller pin used as one of the DS1302 lines.
type Line struct {
	pin    machine.Pin
	output bool
}

var _ ds1302.Line = &Line{}

func NewLine(pin machine.Pin) *Line {
	return &Line{pin: pin}
}

func (l *Line) Reset() error {
	l.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l.pin.Low()
	l.output = true
	return nil
}

func (l *Line) Out(level gpio.Level) error {
	if !l.output {
		l.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		l.output = true
	}
	l.pin.Set(bool(level))
	return nil
}

func (l *Line) In() error {
	l.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	l.output = false
	return nil
}

func (l *Line) Read() (gpio.Level, error) {
	return gpio.Level(l.pin.Get()), nil
}
