package gpio

import (
	"fmt"
	"sync"

	"github.com/mklimuk/ds1302"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var hostInit sync.Once
var hostErr error

// PeriphLine is a host pin resolved through the periph.io registry, e.g.
// "GPIO17" on a Raspberry Pi or "PA6" on Allwinner boards.
type PeriphLine struct {
	pin gpio.PinIO
}

var _ ds1302.Line = &PeriphLine{}

// NewPeriphLine initializes the periph host drivers once and looks the pin up
// by name.
func NewPeriphLine(name string) (*PeriphLine, error) {
	hostInit.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("could not init host: %w", hostErr)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return &PeriphLine{pin: pin}, nil
}

// WrapPin turns an already resolved periph pin into a line.
func WrapPin(pin gpio.PinIO) *PeriphLine {
	return &PeriphLine{pin: pin}
}

func (l *PeriphLine) Reset() error {
	return l.pin.Halt()
}

func (l *PeriphLine) Out(level gpio.Level) error {
	return l.pin.Out(level)
}

func (l *PeriphLine) In() error {
	return l.pin.In(gpio.Float, gpio.NoEdge)
}

func (l *PeriphLine) Read() (gpio.Level, error) {
	return l.pin.Read(), nil
}

func (l *PeriphLine) String() string {
	return l.pin.Name()
}
