// Package ds1302 is a bit-banged driver for the Maxim DS1302 trickle-charge
// timekeeping chip. The chip talks a synchronous, half-duplex three-wire
// protocol (CLK, I/O, CE) which the driver produces on any three Line
// implementations, see the gpio package for periph.io, gpiocdev, gobot,
// MCP2221 and MCP23017 backed lines.
//
// Datasheet: https://www.analog.com/media/en/technical-documentation/data-sheets/DS1302.pdf
//
// Typical usage:
//
//	rtc := ds1302.New(clk, io, ce)
//	if err := rtc.Begin(ctx); err != nil { ... }
//	dt, err := rtc.GetDateTime(ctx)
//
// The Device is not safe for concurrent use; callers serialize access to it.
package ds1302

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultHold is the time between two line transitions. The datasheet asks
// for at least 1µs CLK high/low time at 2V.
const DefaultHold = time.Microsecond

type Opts struct {
	Hold    time.Duration
	Sleeper Sleeper
	Logger  *slog.Logger
}

type Opt func(*Opts)

// WithHold sets the hold time between line transitions.
func WithHold(d time.Duration) Opt {
	return func(o *Opts) {
		o.Hold = d
	}
}

// WithSleeper replaces time.Sleep as the timing source.
func WithSleeper(s Sleeper) Opt {
	return func(o *Opts) {
		o.Sleeper = s
	}
}

func WithLogger(l *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = l
	}
}

// Device is a DS1302 attached to three lines.
type Device struct {
	t   transport
	log *slog.Logger
}

// New binds the driver to its lines. It does not touch the hardware, see
// Configure and Begin.
func New(clk, io, ce Line, opts ...Opt) *Device {
	config := Opts{
		Hold:    DefaultHold,
		Sleeper: SleeperFunc(time.Sleep),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Device{
		t: transport{
			clk:     clk,
			io:      io,
			ce:      ce,
			hold:    config.Hold,
			sleeper: config.Sleeper,
		},
		log: config.Logger,
	}
}

// Open creates the device and runs Begin on it.
func Open(ctx context.Context, clk, io, ce Line, opts ...Opt) (*Device, error) {
	d := New(clk, io, ce, opts...)
	if err := d.Begin(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Configure resets the three lines and parks them low as outputs.
func (d *Device) Configure() error {
	lines := []struct {
		name string
		line Line
	}{
		{"clk", d.t.clk},
		{"io", d.t.io},
		{"ce", d.t.ce},
	}
	for _, l := range lines {
		if err := l.line.Reset(); err != nil {
			return fmt.Errorf("ds1302: could not reset %s line: %w", l.name, err)
		}
	}
	for _, l := range lines {
		if err := l.line.Out(gpio.Low); err != nil {
			return fmt.Errorf("ds1302: could not configure %s line: %w", l.name, err)
		}
	}
	return nil
}

// Begin configures the lines, starts the oscillator and checks it is running.
// ErrHalted is returned when the clock halt flag could not be cleared, e.g.
// because the chip is write protected or not connected.
func (d *Device) Begin(ctx context.Context) error {
	if err := d.Configure(); err != nil {
		return err
	}
	if err := d.SetHalt(ctx, false); err != nil {
		return fmt.Errorf("ds1302: could not start oscillator: %w", err)
	}
	halted, err := d.IsHalted(ctx)
	if err != nil {
		return fmt.Errorf("ds1302: could not check oscillator: %w", err)
	}
	if halted {
		return ErrHalted
	}
	return nil
}
