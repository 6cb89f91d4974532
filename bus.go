package ds1302

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// Line is one of the three digital lines (CLK, I/O, CE) the driver bit-bangs.
// Out drives the line and switches it to output, In releases it to input.
type Line interface {
	Reset() error
	Out(level gpio.Level) error
	In() error
	Read() (gpio.Level, error)
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus carries expander-backed lines (see gpio.MCP23017).
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
