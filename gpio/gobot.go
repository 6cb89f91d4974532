package gpio

import (
	"fmt"

	"github.com/mklimuk/ds1302"
	"gobot.io/x/gobot/v2"
	"gobot.io/x/gobot/v2/system"
	"periph.io/x/conn/v3/gpio"
)

// DigitalPinProvider is implemented by gobot platform adaptors, e.g.
// nanopi.NewNeoAdaptor().
type DigitalPinProvider interface {
	DigitalPin(id string) (gobot.DigitalPinner, error)
}

// GobotLine is a digital pin of a gobot adaptor.
type GobotLine struct {
	pin    gobot.DigitalPinner
	output bool
}

var _ ds1302.Line = &GobotLine{}

// NewGobotLine takes the pin from a connected adaptor.
func NewGobotLine(adaptor DigitalPinProvider, id string) (*GobotLine, error) {
	pin, err := adaptor.DigitalPin(id)
	if err != nil {
		return nil, fmt.Errorf("could not get digital pin %s: %w", id, err)
	}
	return &GobotLine{pin: pin}, nil
}

func (l *GobotLine) Reset() error {
	l.output = false
	return l.Out(gpio.Low)
}

func (l *GobotLine) Out(level gpio.Level) error {
	value := 0
	if level == gpio.High {
		value = 1
	}
	if l.output {
		return l.pin.Write(value)
	}
	if err := l.pin.ApplyOptions(system.WithPinDirectionOutput(value)); err != nil {
		return fmt.Errorf("could not switch pin to output: %w", err)
	}
	l.output = true
	return nil
}

func (l *GobotLine) In() error {
	if !l.output {
		return nil
	}
	if err := l.pin.ApplyOptions(system.WithPinDirectionInput()); err != nil {
		return fmt.Errorf("could not switch pin to input: %w", err)
	}
	l.output = false
	return nil
}

func (l *GobotLine) Read() (gpio.Level, error) {
	value, err := l.pin.Read()
	if err != nil {
		return gpio.Low, err
	}
	return gpio.Level(value != 0), nil
}
