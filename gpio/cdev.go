package gpio

import (
	"fmt"

	"github.com/mklimuk/ds1302"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

const consumer = "ds1302"

// CdevLine is a line requested from the Linux GPIO character device, e.g.
// chip "gpiochip0" offset 17.
type CdevLine struct {
	line   *gpiocdev.Line
	output bool
}

var _ ds1302.Line = &CdevLine{}

// NewCdevLine requests the line as an output driven low.
func NewCdevLine(chip string, offset int) (*CdevLine, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("could not request line %s:%d: %w", chip, offset, err)
	}
	return &CdevLine{line: line, output: true}, nil
}

func (l *CdevLine) Reset() error {
	return l.Out(gpio.Low)
}

func (l *CdevLine) Out(level gpio.Level) error {
	value := 0
	if level == gpio.High {
		value = 1
	}
	if l.output {
		return l.line.SetValue(value)
	}
	if err := l.line.Reconfigure(gpiocdev.AsOutput(value)); err != nil {
		return fmt.Errorf("could not switch line to output: %w", err)
	}
	l.output = true
	return nil
}

func (l *CdevLine) In() error {
	if !l.output {
		return nil
	}
	if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
		return fmt.Errorf("could not switch line to input: %w", err)
	}
	l.output = false
	return nil
}

func (l *CdevLine) Read() (gpio.Level, error) {
	value, err := l.line.Value()
	if err != nil {
		return gpio.Low, err
	}
	return gpio.Level(value != 0), nil
}

func (l *CdevLine) Close() error {
	return l.line.Close()
}
