package adapter

import (
	"context"

	"github.com/mklimuk/ds1302"
	"periph.io/x/conn/v3/gpio"
)

// GPIOLine drives one of the MCP2221 GP pins. Every transition is a HID
// round trip, so open the adapter first and use a short response wait.
type GPIOLine struct {
	dev    *MCP2221
	pin    int
	output bool
}

var _ ds1302.Line = &GPIOLine{}

// GPIOLine returns GP pin 0..3 as a DS1302 line. The pin has to be
// designated for GPIO operation (see SetGPIOParameters).
func (d *MCP2221) GPIOLine(pin int) *GPIOLine {
	return &GPIOLine{dev: d, pin: pin}
}

// Reset drives the pin low as an output.
func (l *GPIOLine) Reset() error {
	l.output = false
	return l.Out(gpio.Low)
}

func (l *GPIOLine) Out(level gpio.Level) error {
	value := byte(0)
	if level == gpio.High {
		value = 1
	}
	var mode *GPIOMode
	if !l.output {
		out := GPIOModeOut
		mode = &out
	}
	if err := l.dev.SetGPIO(context.Background(), l.pin, &value, mode); err != nil {
		return err
	}
	l.output = true
	return nil
}

func (l *GPIOLine) In() error {
	if !l.output {
		return nil
	}
	in := GPIOModeIn
	if err := l.dev.SetGPIO(context.Background(), l.pin, nil, &in); err != nil {
		return err
	}
	l.output = false
	return nil
}

func (l *GPIOLine) Read() (gpio.Level, error) {
	values, err := l.dev.ReadGPIO(context.Background())
	if err != nil {
		return gpio.Low, err
	}
	return gpio.Level(values.Value(l.pin) != 0), nil
}
