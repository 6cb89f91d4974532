package ds1302

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrHalted = errors.New("ds1302: clock halted")

// SetWriteProtect sets or clears the write protect flag, leaving the other
// bits of the register as they are.
func (d *Device) SetWriteProtect(ctx context.Context, enable bool) error {
	reg, err := d.ReadClockRegister(ctx, RegWriteProtect)
	if err != nil {
		return err
	}
	return d.WriteClockRegister(ctx, RegWriteProtect, withBit(reg, bitWriteProtect, enable))
}

func (d *Device) IsWriteProtected(ctx context.Context) (bool, error) {
	reg, err := d.ReadClockRegister(ctx, RegWriteProtect)
	if err != nil {
		return false, err
	}
	return reg&(1<<bitWriteProtect) != 0, nil
}

// SetHalt stops (true) or starts (false) the oscillator. The seconds register
// is only written when the flag actually changes.
func (d *Device) SetHalt(ctx context.Context, halt bool) error {
	old, err := d.ReadClockRegister(ctx, RegSeconds)
	if err != nil {
		return err
	}
	reg := withBit(old, bitHalt, halt)
	d.log.Debug("ds1302 halt", "old", fmt.Sprintf("%#02x", old), "new", fmt.Sprintf("%#02x", reg))
	if reg == old {
		return nil
	}
	return d.WriteClockRegister(ctx, RegSeconds, reg)
}

func (d *Device) IsHalted(ctx context.Context) (bool, error) {
	reg, err := d.ReadClockRegister(ctx, RegSeconds)
	if err != nil {
		return false, err
	}
	return reg&(1<<bitHalt) != 0, nil
}

// SetDateTime writes the full clock block in one burst. The current halt flag
// is preserved and the write protect register is cleared. Fields are checked
// with Validate before anything is sent: an out of range value, such as a
// DayWeek of 0, returns an error wrapping ErrInvalidDateTime instead of being
// masked into the register.
func (d *Device) SetDateTime(ctx context.Context, dt DateTime) error {
	if err := dt.Validate(); err != nil {
		return err
	}
	sec, err := d.ReadClockRegister(ctx, RegSeconds)
	if err != nil {
		return err
	}
	return d.WriteClockBurst(ctx, dt.encode(sec&(1<<bitHalt)))
}

// GetDateTime reads the clock block in one burst. If any decoded field is out
// of range the zero DateTime is returned with an error wrapping
// ErrInvalidDateTime.
func (d *Device) GetDateTime(ctx context.Context) (DateTime, error) {
	buf, err := d.ReadClockBurst(ctx, clockBlockSize)
	if err != nil {
		return DateTime{}, err
	}
	d.log.Debug("ds1302 clock burst", "raw", fmt.Sprintf("% x", buf))
	dt := decodeDateTime(buf)
	if err := dt.Validate(); err != nil {
		d.log.Warn("ds1302 read invalid date time",
			"second", dt.Second,
			"minute", dt.Minute,
			"hour", dt.Hour,
			"day_month", dt.DayMonth,
			"month", dt.Month,
			"day_week", dt.DayWeek,
			"year", dt.Year,
		)
		return DateTime{}, err
	}
	return dt, nil
}

// SetTime replaces the time of day and keeps the date. The date is read back
// first, so this fails if the chip does not hold a valid date yet.
func (d *Device) SetTime(ctx context.Context, hour, minute, second int) error {
	if err := validateTime(hour, minute, second); err != nil {
		return err
	}
	dt, err := d.GetDateTime(ctx)
	if err != nil {
		return fmt.Errorf("ds1302: could not read date to keep: %w", err)
	}
	dt.Hour = hour
	dt.Minute = minute
	dt.Second = second
	return d.SetDateTime(ctx, dt)
}

// GetTime reads only seconds, minutes and hours.
func (d *Device) GetTime(ctx context.Context) (hour, minute, second int, err error) {
	buf, err := d.ReadClockBurst(ctx, 3)
	if err != nil {
		return 0, 0, 0, err
	}
	second = int(FromBCD(buf[0] & 0x7F))
	minute = int(FromBCD(buf[1]))
	hour = int(FromBCD(buf[2]))
	if err := validateTime(hour, minute, second); err != nil {
		return 0, 0, 0, err
	}
	return hour, minute, second, nil
}

// Now reads the clock and interprets it as wall clock time in loc.
func (d *Device) Now(ctx context.Context, loc *time.Location) (time.Time, error) {
	dt, err := d.GetDateTime(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return dt.Time(loc), nil
}

// Set writes the wall clock fields of t.
func (d *Device) Set(ctx context.Context, t time.Time) error {
	return d.SetDateTime(ctx, FromTime(t))
}

func (d *Device) TrickleCharger(ctx context.Context) (byte, error) {
	return d.ReadClockRegister(ctx, RegTrickleCharger)
}

// SetTrickleCharger writes the raw trickle charge register (TCS/DS/RS bits).
func (d *Device) SetTrickleCharger(ctx context.Context, value byte) error {
	return d.WriteClockRegister(ctx, RegTrickleCharger, value)
}

func (d *Device) DisableTrickleCharger(ctx context.Context) error {
	return d.SetTrickleCharger(ctx, TrickleChargerDisabled)
}

func withBit(reg byte, bit uint, set bool) byte {
	if set {
		return reg | 1<<bit
	}
	return reg &^ (1 << bit)
}
