package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/ds1302"
	"periph.io/x/conn/v3/gpio"
)

type registry int

const DefaultMCP23017Address = 0x21

const (
	IODIRA registry = iota
	IOPOLA
	GPINTENA
	DEFVALA
	INTCONA
	IOCONA
	GPPUA
	INTFA
	INTCAPA
	GPIOA
	OLATA
	IODIRB
	IOPOLB
	GPINTENB
	DEFVALB
	INTCONB
	IOCONB
	GPPUB
	INTFB
	INTCAPB
	GPIOB
	OLATB
)

// Port selects one of the two 8 bit ports of the expander.
type Port int

const (
	PortA Port = iota
	PortB
)

func (p Port) String() string {
	if p == PortB {
		return "B"
	}
	return "A"
}

var (
	// BankAddr maps registers to addresses for IOCON.BANK=0 and IOCON.BANK=1.
	BankAddr = []map[registry]byte{
		{
			IODIRA:   0x00,
			IOPOLA:   0x02,
			GPINTENA: 0x04,
			DEFVALA:  0x06,
			INTCONA:  0x08,
			IOCONA:   0x0A,
			GPPUA:    0x0C,
			INTFA:    0x0E,
			INTCAPA:  0x10,
			GPIOA:    0x12,
			OLATA:    0x14,
			IODIRB:   0x01,
			IOPOLB:   0x03,
			GPINTENB: 0x05,
			DEFVALB:  0x07,
			INTCONB:  0x09,
			IOCONB:   0x0B,
			GPPUB:    0x0D,
			INTFB:    0x0F,
			INTCAPB:  0x11,
			GPIOB:    0x13,
			OLATB:    0x15,
		},
		{
			IODIRA:   0x00,
			IOPOLA:   0x01,
			GPINTENA: 0x02,
			DEFVALA:  0x03,
			INTCONA:  0x04,
			IOCONA:   0x05,
			GPPUA:    0x06,
			INTFA:    0x07,
			INTCAPA:  0x08,
			GPIOA:    0x09,
			OLATA:    0x0A,
			IODIRB:   0x10,
			IOPOLB:   0x11,
			GPINTENB: 0x12,
			DEFVALB:  0x13,
			INTCONB:  0x14,
			IOCONB:   0x15,
			GPPUB:    0x16,
			INTFB:    0x17,
			INTCAPB:  0x18,
			GPIOB:    0x19,
			OLATB:    0x1A,
		},
	}
)

var portRegs = [2]struct{ iodir, gpio, olat registry }{
	{IODIRA, GPIOA, OLATA},
	{IODIRB, GPIOB, OLATB},
}

/*
	Driving a pin:

1. Clear its bit in the IODIR registry (output) - 0x00(A)/0x01(B)
2. Write the level to OLAT - 0x14(A)/0x15(B)

	Reading a pin:

1. Set its bit in IODIR (input)
2. Read port register GPIO - 0x12(A)/0x13(B)
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  ds1302.I2CBus
	bank       int
	address    byte
	retryLimit int
	// shadow copies of IODIR and OLAT per port, IODIR synced by Init, both by ExpanderLine.Reset
	iodir [2]byte
	olat  [2]byte
}

func NewMCP23017(bus ds1302.I2CBus, address byte) *MCP23017 {
	return &MCP23017{
		retryLimit: 1,
		transport:  bus,
		address:    address,
		iodir:      [2]byte{0xFF, 0xFF},
	}
}

// SetRetryLimit sets how many times a busy bus is released and retried.
func (m *MCP23017) SetRetryLimit(limit int) {
	m.retryLimit = max(limit, 1)
}

// InitA sets IODIR registry to inout on I/O pool A
func (m *MCP23017) InitA(ctx context.Context, inout byte) error {
	return m.setDirection(ctx, PortA, inout)
}

// InitB sets IODIR registry to inout on I/O pool B
func (m *MCP23017) InitB(ctx context.Context, inout byte) error {
	return m.setDirection(ctx, PortB, inout)
}

func (m *MCP23017) setDirection(ctx context.Context, port Port, inout byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.writeRegistry(ctx, portRegs[port].iodir, inout); err != nil {
		return fmt.Errorf("could not initialize gpio %s set: %w", port, err)
	}
	m.iodir[port] = inout
	return nil
}

// PullUpA sets up pull up resistors on set A
func (m *MCP23017) PullUpA(ctx context.Context, settings byte) error {
	return m.write(ctx, GPPUA, settings, "could not set pull-up on gpio A set")
}

// PullUpB sets up pull up resistors on set B
func (m *MCP23017) PullUpB(ctx context.Context, settings byte) error {
	return m.write(ctx, GPPUB, settings, "could not set pull-up on gpio B set")
}

// WriteA sets the output latch of set A
func (m *MCP23017) WriteA(ctx context.Context, value byte) error {
	return m.writeLatch(ctx, PortA, value)
}

// WriteB sets the output latch of set B
func (m *MCP23017) WriteB(ctx context.Context, value byte) error {
	return m.writeLatch(ctx, PortB, value)
}

func (m *MCP23017) writeLatch(ctx context.Context, port Port, value byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.writeRegistry(ctx, portRegs[port].olat, value); err != nil {
		return fmt.Errorf("could not write gpio %s set: %w", port, err)
	}
	m.olat[port] = value
	return nil
}

func (m *MCP23017) Read(ctx context.Context) ([]byte, error) {
	res := make([]byte, 2)
	var err error
	res[0], err = m.ReadA(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read gpio set A: %w", err)
	}
	res[1], err = m.ReadB(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read gpio set B: %w", err)
	}
	return res, nil
}

// ReadA reads gpio A set values
func (m *MCP23017) ReadA(ctx context.Context) (byte, error) {
	return m.read(ctx, GPIOA, "could not read gpio A set")
}

// ReadB reads gpio B set values
func (m *MCP23017) ReadB(ctx context.Context) (byte, error) {
	return m.read(ctx, GPIOB, "could not read gpio B set")
}

// ReadSettingsA reads contents of IOCON registry
func (m *MCP23017) ReadSettingsA(ctx context.Context) (byte, error) {
	return m.read(ctx, IOCONA, "could not read gpio A settings")
}

// WriteSettingsA writes the IOCON registry through set A
func (m *MCP23017) WriteSettingsA(ctx context.Context, settings byte) error {
	return m.write(ctx, IOCONA, settings, "could not write settings on gpio A set")
}

// ReadSettingsB reads contents of IOCON registry
func (m *MCP23017) ReadSettingsB(ctx context.Context) (byte, error) {
	return m.read(ctx, IOCONB, "could not read gpio B settings")
}

// WriteSettingsB writes the IOCON registry through set B
func (m *MCP23017) WriteSettingsB(ctx context.Context, settings byte) error {
	return m.write(ctx, IOCONB, settings, "could not write settings on gpio B set")
}

func (m *MCP23017) write(ctx context.Context, reg registry, value byte, msg string) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.writeRegistry(ctx, reg, value); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

func (m *MCP23017) read(ctx context.Context, reg registry, msg string) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	res, err := m.readRegistry(ctx, reg)
	if err != nil {
		return res, fmt.Errorf("%s: %w", msg, err)
	}
	return res, nil
}

// writeRegistry writes one register, releasing the bus and retrying while
// the adapter reports busy. Callers hold mx.
func (m *MCP23017) writeRegistry(ctx context.Context, reg registry, value byte) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{BankAddr[m.bank][reg], value})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ds1302.ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}

func (m *MCP23017) readRegistry(ctx context.Context, reg registry) (byte, error) {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{BankAddr[m.bank][reg]})
		if err == nil {
			buf := make([]byte, 1)
			err = m.transport.ReadFromAddr(ctx, m.address, buf)
			if err == nil {
				return buf[0], nil
			}
		}
		if !errors.Is(err, ds1302.ErrBusBusy) {
			return 0x00, err
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return 0x00, fmt.Errorf("retry limit reached: %w", err)
}

// Line returns one pin of the expander as a DS1302 line. The expander is
// reached over I2C for every transition so the hold time of the driver can
// be left at its minimum.
func (m *MCP23017) Line(port Port, pin uint8) *ExpanderLine {
	return &ExpanderLine{dev: m, port: port, mask: 1 << (pin & 0x07)}
}

// ExpanderLine is a single MCP23017 pin.
type ExpanderLine struct {
	dev  *MCP23017
	port Port
	mask byte
}

var _ ds1302.Line = &ExpanderLine{}

// Reset loads the port's IODIR and OLAT into the shadow copies, clears the
// pin's latch and switches it to input. Both registers are always written:
// a latch left high by an earlier process must not drive the line once it
// becomes an output again.
func (l *ExpanderLine) Reset() error {
	m := l.dev
	m.mx.Lock()
	defer m.mx.Unlock()
	ctx := context.Background()
	regs := portRegs[l.port]
	iodir, err := m.readRegistry(ctx, regs.iodir)
	if err != nil {
		return fmt.Errorf("could not read direction of gpio %s set: %w", l.port, err)
	}
	olat, err := m.readRegistry(ctx, regs.olat)
	if err != nil {
		return fmt.Errorf("could not read latch of gpio %s set: %w", l.port, err)
	}
	olat &^= l.mask
	if err := m.writeRegistry(ctx, regs.olat, olat); err != nil {
		return fmt.Errorf("could not clear pin latch on gpio %s set: %w", l.port, err)
	}
	m.olat[l.port] = olat
	iodir |= l.mask
	if err := m.writeRegistry(ctx, regs.iodir, iodir); err != nil {
		return fmt.Errorf("could not reset pin on gpio %s set: %w", l.port, err)
	}
	m.iodir[l.port] = iodir
	return nil
}

func (l *ExpanderLine) Out(level gpio.Level) error {
	m := l.dev
	m.mx.Lock()
	defer m.mx.Unlock()
	ctx := context.Background()
	olat := m.olat[l.port] &^ l.mask
	if level == gpio.High {
		olat |= l.mask
	}
	if olat != m.olat[l.port] {
		if err := m.writeRegistry(ctx, portRegs[l.port].olat, olat); err != nil {
			return fmt.Errorf("could not set pin level on gpio %s set: %w", l.port, err)
		}
		m.olat[l.port] = olat
	}
	if m.iodir[l.port]&l.mask == 0 {
		return nil
	}
	iodir := m.iodir[l.port] &^ l.mask
	if err := m.writeRegistry(ctx, portRegs[l.port].iodir, iodir); err != nil {
		return fmt.Errorf("could not switch pin to output on gpio %s set: %w", l.port, err)
	}
	m.iodir[l.port] = iodir
	return nil
}

func (l *ExpanderLine) In() error {
	m := l.dev
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.iodir[l.port]&l.mask != 0 {
		return nil
	}
	iodir := m.iodir[l.port] | l.mask
	if err := m.writeRegistry(context.Background(), portRegs[l.port].iodir, iodir); err != nil {
		return fmt.Errorf("could not switch pin to input on gpio %s set: %w", l.port, err)
	}
	m.iodir[l.port] = iodir
	return nil
}

func (l *ExpanderLine) Read() (gpio.Level, error) {
	m := l.dev
	m.mx.Lock()
	defer m.mx.Unlock()
	value, err := m.readRegistry(context.Background(), portRegs[l.port].gpio)
	if err != nil {
		return gpio.Low, fmt.Errorf("could not read gpio %s set: %w", l.port, err)
	}
	return gpio.Level(value&l.mask != 0), nil
}
