package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/ds1302"
	"github.com/mklimuk/ds1302/adapter"
	"github.com/mklimuk/ds1302/gpio"
	"github.com/mklimuk/ds1302/i2c"
	"github.com/mklimuk/ds1302/pkg/config"
)

// rtc is an opened device together with whatever has to be released after
// use.
type rtc struct {
	*ds1302.Device
	cfg     config.Config
	closers []func() error
}

func (r *rtc) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

func (r *rtc) onClose(f func() error) {
	r.closers = append(r.closers, f)
}

// openRTC builds the three lines of the configured backend and parks them.
func openRTC(cfg config.Config) (*rtc, error) {
	r := &rtc{cfg: cfg}
	clk, io, ce, err := r.lines()
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	r.Device = ds1302.New(clk, io, ce, ds1302.WithHold(cfg.Hold.Std()), ds1302.WithLogger(slog.Default()))
	if err := r.Configure(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *rtc) lines() (clk, io, ce ds1302.Line, err error) {
	pins := r.cfg.Pins
	switch r.cfg.Backend {
	case config.BackendPeriph:
		return three(pins, func(name string) (ds1302.Line, error) {
			return gpio.NewPeriphLine(name)
		})
	case config.BackendCdev:
		return three(pins, func(name string) (ds1302.Line, error) {
			offset, err := strconv.Atoi(name)
			if err != nil {
				return nil, fmt.Errorf("invalid line offset %q: %w", name, err)
			}
			line, err := gpio.NewCdevLine(r.cfg.Chip, offset)
			if err != nil {
				return nil, err
			}
			r.onClose(line.Close)
			return line, nil
		})
	case config.BackendGobot:
		npi := nanopi.NewNeoAdaptor()
		if err := npi.Connect(); err != nil {
			return nil, nil, nil, fmt.Errorf("could not connect nanopi adaptor: %w", err)
		}
		r.onClose(npi.Finalize)
		return three(pins, func(name string) (ds1302.Line, error) {
			return gpio.NewGobotLine(npi, name)
		})
	case config.BackendExpander:
		bus, err := r.expanderBus()
		if err != nil {
			return nil, nil, nil, err
		}
		exp := gpio.NewMCP23017(bus, r.cfg.Expander.Address)
		exp.SetRetryLimit(r.cfg.Expander.Retries)
		return three(pins, func(name string) (ds1302.Line, error) {
			port, pin, err := parseExpanderPin(name)
			if err != nil {
				return nil, err
			}
			return exp.Line(port, pin), nil
		})
	case config.BackendMCP2221:
		a, err := r.mcp2221()
		if err != nil {
			return nil, nil, nil, err
		}
		var used []int
		clk, io, ce, err = three(pins, func(name string) (ds1302.Line, error) {
			pin, err := strconv.Atoi(name)
			if err != nil || pin < 0 || pin >= adapter.GPIOPins {
				return nil, fmt.Errorf("invalid GP pin %q", name)
			}
			used = append(used, pin)
			return a.GPIOLine(pin), nil
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return clk, io, ce, designateGPIO(context.Background(), a, used)
	case config.BackendSim:
		sim := ds1302.NewSimulator()
		slog.Warn("using simulated DS1302, nothing is written to hardware")
		return sim.CLK(), sim.IO(), sim.CE(), nil
	}
	return nil, nil, nil, fmt.Errorf("unsupported backend %q", r.cfg.Backend)
}

func three(pins config.Pins, open func(name string) (ds1302.Line, error)) (clk, io, ce ds1302.Line, err error) {
	if clk, err = open(pins.CLK); err != nil {
		return nil, nil, nil, fmt.Errorf("clk: %w", err)
	}
	if io, err = open(pins.IO); err != nil {
		return nil, nil, nil, fmt.Errorf("io: %w", err)
	}
	if ce, err = open(pins.CE); err != nil {
		return nil, nil, nil, fmt.Errorf("ce: %w", err)
	}
	return clk, io, ce, nil
}

func (r *rtc) mcp2221() (*adapter.MCP2221, error) {
	a := adapter.NewMCP2221(
		adapter.WithIndex(r.cfg.MCP2221.Index),
		adapter.WithResponseWait(r.cfg.MCP2221.ResponseWait.Std()),
	)
	if err := a.Open(); err != nil {
		return nil, fmt.Errorf("adapter initialization error: %w", err)
	}
	r.onClose(a.Close)
	return a, nil
}

func (r *rtc) expanderBus() (ds1302.I2CBus, error) {
	if r.cfg.Expander.Bus == "" {
		return r.mcp2221()
	}
	bus, err := i2c.NewGenericBus(r.cfg.Expander.Bus)
	if err != nil {
		return nil, err
	}
	r.onClose(bus.Close)
	return bus, nil
}

// designateGPIO switches the used GP pins to GPIO operation, leaving the
// other pins' functions alone.
func designateGPIO(ctx context.Context, a *adapter.MCP2221, pins []int) error {
	params, err := a.GetGPIOParameters(ctx)
	if err != nil {
		return fmt.Errorf("could not read GP settings: %w", err)
	}
	designations := []*adapter.GPIODesignation{
		&params.GPIO0Designation, &params.GPIO1Designation, &params.GPIO2Designation, &params.GPIO3Designation,
	}
	modes := []*adapter.GPIOMode{
		&params.GPIO0Mode, &params.GPIO1Mode, &params.GPIO2Mode, &params.GPIO3Mode,
	}
	for _, pin := range pins {
		*designations[pin] = adapter.GPIOOperation
		*modes[pin] = adapter.GPIOModeOut
	}
	return a.SetGPIOParameters(ctx, params)
}

// parseExpanderPin reads "A0".."A7" and "B0".."B7".
func parseExpanderPin(name string) (gpio.Port, uint8, error) {
	name = strings.ToUpper(name)
	if len(name) != 2 || name[1] < '0' || name[1] > '7' {
		return 0, 0, fmt.Errorf("invalid expander pin %q", name)
	}
	switch name[0] {
	case 'A':
		return gpio.PortA, name[1] - '0', nil
	case 'B':
		return gpio.PortB, name[1] - '0', nil
	}
	return 0, 0, fmt.Errorf("invalid expander port in %q", name)
}

var _ io.Closer = &rtc{}
