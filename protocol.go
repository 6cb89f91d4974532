package ds1302

import (
	"context"
	"errors"
	"fmt"
)

var ErrAddressOutOfRange = errors.New("ds1302: address out of range")

// WriteClockRegister writes a single clock region register.
func (d *Device) WriteClockRegister(ctx context.Context, reg Register, value byte) error {
	if reg >= burstAddress {
		return fmt.Errorf("%w: register %#x", ErrAddressOutOfRange, byte(reg))
	}
	err := d.write(ctx, Command(RegionClock, byte(reg), Write), []byte{value})
	if err != nil {
		return fmt.Errorf("ds1302: could not write register %#x: %w", byte(reg), err)
	}
	return nil
}

// ReadClockRegister reads a single clock region register.
func (d *Device) ReadClockRegister(ctx context.Context, reg Register) (byte, error) {
	if reg >= burstAddress {
		return 0, fmt.Errorf("%w: register %#x", ErrAddressOutOfRange, byte(reg))
	}
	buf, err := d.read(ctx, Command(RegionClock, byte(reg), Read), 1)
	if err != nil {
		return 0, fmt.Errorf("ds1302: could not read register %#x: %w", byte(reg), err)
	}
	return buf[0], nil
}

// WriteRAM writes one byte of battery-backed RAM, addr 0..30.
func (d *Device) WriteRAM(ctx context.Context, addr byte, value byte) error {
	if addr >= RAMSize {
		return fmt.Errorf("%w: ram %#x", ErrAddressOutOfRange, addr)
	}
	err := d.write(ctx, Command(RegionRAM, addr, Write), []byte{value})
	if err != nil {
		return fmt.Errorf("ds1302: could not write ram %#x: %w", addr, err)
	}
	return nil
}

// ReadRAM reads one byte of battery-backed RAM, addr 0..30.
func (d *Device) ReadRAM(ctx context.Context, addr byte) (byte, error) {
	if addr >= RAMSize {
		return 0, fmt.Errorf("%w: ram %#x", ErrAddressOutOfRange, addr)
	}
	buf, err := d.read(ctx, Command(RegionRAM, addr, Read), 1)
	if err != nil {
		return 0, fmt.Errorf("ds1302: could not read ram %#x: %w", addr, err)
	}
	return buf[0], nil
}

// WriteRAMBurst writes data to RAM starting at address 0 in a single frame.
// Only the first RAMSize bytes are written; the number written is returned.
func (d *Device) WriteRAMBurst(ctx context.Context, data []byte) (int, error) {
	n := min(len(data), RAMSize)
	if n == 0 {
		return 0, nil
	}
	err := d.write(ctx, BurstCommand(RegionRAM, Write), data[:n])
	if err != nil {
		return 0, fmt.Errorf("ds1302: ram burst write failed: %w", err)
	}
	return n, nil
}

// ReadRAMBurst reads n bytes of RAM starting at address 0, n is clamped to
// RAMSize.
func (d *Device) ReadRAMBurst(ctx context.Context, n int) ([]byte, error) {
	n = min(max(n, 0), RAMSize)
	if n == 0 {
		return []byte{}, nil
	}
	buf, err := d.read(ctx, BurstCommand(RegionRAM, Read), n)
	if err != nil {
		return nil, fmt.Errorf("ds1302: ram burst read failed: %w", err)
	}
	return buf, nil
}

// WriteClockBurst writes the clock block starting at the seconds register:
// seconds, minutes, hours, date, month, day, year, write protect. The chip
// only latches a clock burst when all eight bytes were sent. Extra bytes are
// dropped.
func (d *Device) WriteClockBurst(ctx context.Context, data []byte) error {
	n := min(len(data), clockBurstSize)
	err := d.write(ctx, BurstCommand(RegionClock, Write), data[:n])
	if err != nil {
		return fmt.Errorf("ds1302: clock burst write failed: %w", err)
	}
	return nil
}

// ReadClockBurst reads the first n registers of the clock block, n is
// clamped to the eight burst registers.
func (d *Device) ReadClockBurst(ctx context.Context, n int) ([]byte, error) {
	n = min(max(n, 0), clockBurstSize)
	buf, err := d.read(ctx, BurstCommand(RegionClock, Read), n)
	if err != nil {
		return nil, fmt.Errorf("ds1302: clock burst read failed: %w", err)
	}
	return buf, nil
}

func (d *Device) write(ctx context.Context, cmd byte, data []byte) error {
	return d.t.transfer(ctx, cmd, func(f *frame) {
		for _, b := range data {
			d.t.writeByte(f, b)
		}
	})
}

func (d *Device) read(ctx context.Context, cmd byte, n int) ([]byte, error) {
	var buf []byte
	err := d.t.transfer(ctx, cmd, func(f *frame) {
		buf = d.t.readBuffer(f, n)
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}
