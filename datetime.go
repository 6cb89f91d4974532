package ds1302

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDateTime = errors.New("ds1302: invalid date time")

const (
	minYear = 2000
	maxYear = 2099
)

// DateTime is the calendar content of the clock registers, always in 24-hour
// representation. DayWeek is 1..7; FromTime maps Monday to 1 and Sunday to 7.
type DateTime struct {
	Second   int `yaml:"second"`
	Minute   int `yaml:"minute"`
	Hour     int `yaml:"hour"`
	DayWeek  int `yaml:"day_week"`
	DayMonth int `yaml:"day_month"`
	Month    int `yaml:"month"`
	Year     int `yaml:"year"`
}

// FromTime takes the wall clock fields of t in its own location.
func FromTime(t time.Time) DateTime {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return DateTime{
		Second:   t.Second(),
		Minute:   t.Minute(),
		Hour:     t.Hour(),
		DayWeek:  wd,
		DayMonth: t.Day(),
		Month:    int(t.Month()),
		Year:     t.Year(),
	}
}

// Time interprets dt as a wall clock time in loc.
func (dt DateTime) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(dt.Year, time.Month(dt.Month), dt.DayMonth, dt.Hour, dt.Minute, dt.Second, 0, loc)
}

func (dt DateTime) IsZero() bool {
	return dt == DateTime{}
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%d %04d-%02d-%02d %02d:%02d:%02d", dt.DayWeek, dt.Year, dt.Month, dt.DayMonth, dt.Hour, dt.Minute, dt.Second)
}

// Validate checks every field against the range the chip can hold.
func (dt DateTime) Validate() error {
	if err := validateTime(dt.Hour, dt.Minute, dt.Second); err != nil {
		return err
	}
	switch {
	case dt.DayMonth < 1 || dt.DayMonth > 31:
		return fmt.Errorf("%w: day of month %d", ErrInvalidDateTime, dt.DayMonth)
	case dt.Month < 1 || dt.Month > 12:
		return fmt.Errorf("%w: month %d", ErrInvalidDateTime, dt.Month)
	case dt.DayWeek < 1 || dt.DayWeek > 7:
		return fmt.Errorf("%w: day of week %d", ErrInvalidDateTime, dt.DayWeek)
	case dt.Year < minYear || dt.Year > maxYear:
		return fmt.Errorf("%w: year %d", ErrInvalidDateTime, dt.Year)
	}
	return nil
}

func validateTime(hour, minute, second int) error {
	switch {
	case second < 0 || second > 59:
		return fmt.Errorf("%w: second %d", ErrInvalidDateTime, second)
	case minute < 0 || minute > 59:
		return fmt.Errorf("%w: minute %d", ErrInvalidDateTime, minute)
	case hour < 0 || hour > 23:
		return fmt.Errorf("%w: hour %d", ErrInvalidDateTime, hour)
	}
	return nil
}

// encode builds the clock burst: seven BCD registers followed by the write
// protect register (cleared). halt is merged into the seconds register.
func (dt DateTime) encode(halt byte) []byte {
	return []byte{
		halt | ToBCD(uint8(dt.Second)&0x7F),
		ToBCD(uint8(dt.Minute)),
		ToBCD(uint8(dt.Hour) & 0x3F),
		ToBCD(uint8(dt.DayMonth) & 0x3F),
		ToBCD(uint8(dt.Month) & 0x1F),
		ToBCD(uint8(dt.DayWeek) & 0x07),
		ToBCD(uint8(dt.Year - minYear)),
		0x00,
	}
}

// decodeDateTime expects the seven clock block registers.
func decodeDateTime(buf []byte) DateTime {
	return DateTime{
		Second:   int(FromBCD(buf[0] & 0x7F)),
		Minute:   int(FromBCD(buf[1])),
		Hour:     int(FromBCD(buf[2])),
		DayMonth: int(FromBCD(buf[3])),
		Month:    int(FromBCD(buf[4])),
		DayWeek:  int(FromBCD(buf[5])),
		Year:     minYear + int(FromBCD(buf[6])),
	}
}
