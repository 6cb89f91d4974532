package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrWriteProtected = errors.New("rtc write protected")
	ErrHalted         = errors.New("rtc halted")
)

// Clock is the part of ds1302.Device used here.
type Clock interface {
	Set(ctx context.Context, t time.Time) error
	Now(ctx context.Context, loc *time.Location) (time.Time, error)
	IsWriteProtected(ctx context.Context) (bool, error)
	IsHalted(ctx context.Context) (bool, error)
}

// Sync writes the reference time, as wall clock time in loc, to the RTC and
// checks that the chip is left writable and running. It returns the time
// that was written.
func Sync(ctx context.Context, rtc Clock, src Source, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now, err := src.Now(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not get reference time: %w", err)
	}
	now = now.In(loc)
	slog.Info("reference time", "time", now.Format(time.DateTime), "zone", loc.String())
	if err := rtc.Set(ctx, now); err != nil {
		return time.Time{}, fmt.Errorf("could not set rtc: %w", err)
	}
	protected, err := rtc.IsWriteProtected(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if protected {
		return time.Time{}, ErrWriteProtected
	}
	halted, err := rtc.IsHalted(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if halted {
		return time.Time{}, ErrHalted
	}
	return now, nil
}

// Drift compares the RTC against the reference time.
type Drift struct {
	Reference time.Time     `yaml:"reference"`
	RTC       time.Time     `yaml:"rtc"`
	Offset    time.Duration `yaml:"offset"`
}

// Diff reads both clocks; a positive Offset means the RTC is ahead. Both are
// truncated to whole seconds, the resolution of the chip.
func Diff(ctx context.Context, rtc Clock, src Source, loc *time.Location) (Drift, error) {
	if loc == nil {
		loc = time.UTC
	}
	ref, err := src.Now(ctx)
	if err != nil {
		return Drift{}, fmt.Errorf("could not get reference time: %w", err)
	}
	rtcNow, err := rtc.Now(ctx, loc)
	if err != nil {
		return Drift{}, fmt.Errorf("could not read rtc: %w", err)
	}
	ref = ref.In(loc).Truncate(time.Second)
	return Drift{
		Reference: ref,
		RTC:       rtcNow,
		Offset:    rtcNow.Sub(ref),
	}, nil
}

// Monitor reads the RTC every interval until ctx is done and hands each
// reading to fn. Read errors are passed on as well; the loop keeps going.
func Monitor(ctx context.Context, rtc Clock, loc *time.Location, interval time.Duration, fn func(time.Time, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(rtc.Now(ctx, loc))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
