package ds1302

import (
	"context"
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Sleeper provides the hold time between two line transitions.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(d time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// transport shifts bytes over the three lines. A frame always runs
// begin -> command byte -> data bytes -> end.
type transport struct {
	clk, io, ce Line
	hold        time.Duration
	sleeper     Sleeper
}

// frame keeps the first line error of a transfer; once set, all further
// transitions of the frame are skipped.
type frame struct {
	t   *transport
	err error
}

func (f *frame) out(l Line, level gpio.Level) {
	if f.err != nil {
		return
	}
	f.err = l.Out(level)
}

func (f *frame) release(l Line) {
	if f.err != nil {
		return
	}
	f.err = l.In()
}

func (f *frame) sample(l Line) gpio.Level {
	if f.err != nil {
		return gpio.Low
	}
	level, err := l.Read()
	f.err = err
	return level
}

func (f *frame) wait() {
	if f.err != nil {
		return
	}
	f.t.sleeper.Sleep(f.t.hold)
}

// transfer runs one complete frame. CE is dropped on every exit path, also
// when a line failed in the middle of the frame.
func (t *transport) transfer(ctx context.Context, cmd byte, data func(f *frame)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := &frame{t: t}
	t.begin(f)
	t.sendCommand(f, cmd)
	if data != nil {
		data(f)
	}
	return errors.Join(f.err, t.end())
}

// begin: CLK low, I/O low as output, then CE high. The order matters for the
// chip's CE setup time.
func (t *transport) begin(f *frame) {
	f.out(t.clk, gpio.Low)
	f.out(t.io, gpio.Low)
	f.out(t.ce, gpio.High)
	f.wait()
}

func (t *transport) end() error {
	err := t.ce.Out(gpio.Low)
	t.sleeper.Sleep(t.hold)
	return err
}

// sendCommand shifts the command byte out LSB first, one bit per rising CLK
// edge. For a read command the last clock pulse is left high and I/O is
// handed over to the chip, which puts the first data bit out on the next
// falling edge.
func (t *transport) sendCommand(f *frame, cmd byte) {
	for i := 0; i < 8; i++ {
		f.out(t.io, gpio.Level(cmd&(1<<i) != 0))
		f.wait()
		f.out(t.clk, gpio.High)
		f.wait()
		if i == 7 && isRead(cmd) {
			f.release(t.io)
			continue
		}
		f.out(t.clk, gpio.Low)
		f.wait()
	}
}

func (t *transport) writeByte(f *frame, value byte) {
	for i := 0; i < 8; i++ {
		f.out(t.io, gpio.Level(value&0x01 != 0))
		value >>= 1
		f.wait()
		f.out(t.clk, gpio.High)
		f.wait()
		f.out(t.clk, gpio.Low)
		f.wait()
	}
}

// readByte clocks one byte in, LSB first: pulse CLK, then sample I/O.
func (t *transport) readByte(f *frame) byte {
	var value byte
	for i := 0; i < 8; i++ {
		f.out(t.clk, gpio.High)
		f.wait()
		f.out(t.clk, gpio.Low)
		f.wait()
		value >>= 1
		if f.sample(t.io) == gpio.High {
			value |= 0x80
		}
	}
	return value
}

func (t *transport) readBuffer(f *frame, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = t.readByte(f)
	}
	return buf
}
