package ds1302

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setClock(sim *Simulator, regs ...byte) {
	for i, r := range regs {
		sim.SetRegister(Register(i), r)
	}
}

func TestSetHalt_KeepsSeconds(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	sim.SetRegister(RegSeconds, 0x45)

	require.NoError(t, d.SetHalt(ctx, true))
	assert.Equal(t, byte(0xC5), sim.Register(RegSeconds))
	halted, err := d.IsHalted(ctx)
	require.NoError(t, err)
	assert.True(t, halted)

	require.NoError(t, d.SetHalt(ctx, false))
	assert.Equal(t, byte(0x45), sim.Register(RegSeconds))
}

func TestSetHalt_NoWriteWhenUnchanged(t *testing.T) {
	d, sim := newSimDevice(t)
	sim.SetRegister(RegSeconds, 0x45)
	sim.ResetFrames()

	require.NoError(t, d.SetHalt(context.Background(), false))
	frames := sim.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x81), frames[0].Command)
	assert.True(t, frames[0].IsRead())
}

func TestSetHalt_NoWriteWhenAlreadyHalted(t *testing.T) {
	d, sim := newSimDevice(t)
	sim.SetRegister(RegSeconds, 0xC5)
	sim.ResetFrames()

	require.NoError(t, d.SetHalt(context.Background(), true))
	frames := sim.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x81), frames[0].Command)
	assert.True(t, frames[0].IsRead())
	assert.Equal(t, byte(0xC5), sim.Register(RegSeconds))
}

func TestSetWriteProtect_KeepsOtherBits(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	sim.SetRegister(RegWriteProtect, 0x01)

	require.NoError(t, d.SetWriteProtect(ctx, true))
	assert.Equal(t, byte(0x81), sim.Register(RegWriteProtect))
	protected, err := d.IsWriteProtected(ctx)
	require.NoError(t, err)
	assert.True(t, protected)

	require.NoError(t, d.SetWriteProtect(ctx, false))
	assert.Equal(t, byte(0x01), sim.Register(RegWriteProtect))
	protected, err = d.IsWriteProtected(ctx)
	require.NoError(t, err)
	assert.False(t, protected)
}

func TestWriteProtect_BlocksWrites(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	require.NoError(t, d.SetWriteProtect(ctx, true))

	require.NoError(t, d.WriteRAM(ctx, 0, 0xAA))
	assert.Equal(t, byte(0x00), sim.RAM()[0])
	require.NoError(t, d.SetHalt(ctx, false))
	assert.Equal(t, byte(0x80), sim.Register(RegSeconds))
}

func TestGetDateTime(t *testing.T) {
	tests := []struct {
		name     string
		regs     []byte
		expected DateTime
		err      error
	}{
		{
			name:     "valid",
			regs:     []byte{0x59, 0x30, 0x13, 0x15, 0x06, 0x06, 0x24},
			expected: DateTime{Second: 59, Minute: 30, Hour: 13, DayMonth: 15, Month: 6, DayWeek: 6, Year: 2024},
		},
		{
			name:     "halted clock still decodes",
			regs:     []byte{0xD9, 0x30, 0x13, 0x15, 0x06, 0x06, 0x24},
			expected: DateTime{Second: 59, Minute: 30, Hour: 13, DayMonth: 15, Month: 6, DayWeek: 6, Year: 2024},
		},
		{
			name:     "last year",
			regs:     []byte{0x00, 0x00, 0x00, 0x31, 0x12, 0x04, 0x99},
			expected: DateTime{DayMonth: 31, Month: 12, DayWeek: 4, Year: 2099},
		},
		{
			name: "second 60",
			regs: []byte{0x60, 0x30, 0x13, 0x15, 0x06, 0x06, 0x24},
			err:  ErrInvalidDateTime,
		},
		{
			name: "malformed year register",
			regs: []byte{0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0xA0},
			err:  ErrInvalidDateTime,
		},
		{
			name: "day of week 0",
			regs: []byte{0x00, 0x00, 0x00, 0x01, 0x01, 0x00, 0x24},
			err:  ErrInvalidDateTime,
		},
		{
			name: "12 hour mode",
			regs: []byte{0x00, 0x00, 0x81, 0x01, 0x01, 0x01, 0x24},
			err:  ErrInvalidDateTime,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d, sim := newSimDevice(t)
			setClock(sim, test.regs...)
			dt, err := d.GetDateTime(context.Background())
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				assert.True(t, dt.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, dt)
		})
	}
}

func TestGetDateTime_SingleBurstFrame(t *testing.T) {
	d, sim := newSimDevice(t)
	setClock(sim, 0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x24)
	sim.ResetFrames()
	_, err := d.GetDateTime(context.Background())
	require.NoError(t, err)
	frames := sim.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0xBF), frames[0].Command)
	assert.Len(t, frames[0].Data, 7)
}

func TestSetDateTime_RoundTrip(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	require.NoError(t, d.Begin(ctx))

	dt := DateTime{Second: 45, Minute: 30, Hour: 13, DayWeek: 6, DayMonth: 15, Month: 6, Year: 2024}
	require.NoError(t, d.SetDateTime(ctx, dt))
	assert.Equal(t, byte(0x45), sim.Register(RegSeconds))
	assert.Equal(t, byte(0x30), sim.Register(RegMinutes))
	assert.Equal(t, byte(0x13), sim.Register(RegHours))
	assert.Equal(t, byte(0x15), sim.Register(RegDayMonth))
	assert.Equal(t, byte(0x06), sim.Register(RegMonth))
	assert.Equal(t, byte(0x06), sim.Register(RegDayWeek))
	assert.Equal(t, byte(0x24), sim.Register(RegYear))
	assert.Equal(t, byte(0x00), sim.Register(RegWriteProtect))

	got, err := d.GetDateTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, dt, got)
	halted, err := d.IsHalted(ctx)
	require.NoError(t, err)
	assert.False(t, halted)
}

func TestSetDateTime_KeepsHalt(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	// power-on state is halted

	dt := DateTime{Second: 45, Minute: 30, Hour: 13, DayWeek: 6, DayMonth: 15, Month: 6, Year: 2024}
	require.NoError(t, d.SetDateTime(ctx, dt))
	assert.Equal(t, byte(0xC5), sim.Register(RegSeconds))
	halted, err := d.IsHalted(ctx)
	require.NoError(t, err)
	assert.True(t, halted)
	got, err := d.GetDateTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, dt, got)
}

func TestSetDateTime_RejectsInvalid(t *testing.T) {
	d, sim := newSimDevice(t)
	sim.ResetFrames()
	err := d.SetDateTime(context.Background(), DateTime{Second: 60, Minute: 0, Hour: 0, DayWeek: 1, DayMonth: 1, Month: 1, Year: 2024})
	require.ErrorIs(t, err, ErrInvalidDateTime)
	err = d.SetDateTime(context.Background(), DateTime{Second: 0, Minute: 0, Hour: 0, DayWeek: 0, DayMonth: 1, Month: 1, Year: 2024})
	require.ErrorIs(t, err, ErrInvalidDateTime)
	assert.Empty(t, sim.Frames())
}

func TestWriteClockBurst_Incomplete(t *testing.T) {
	d, sim := newSimDevice(t)
	setClock(sim, 0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x24)
	require.NoError(t, d.WriteClockBurst(context.Background(), []byte{0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11}))
	assert.Equal(t, byte(0x24), sim.Register(RegYear), "partial clock burst must not be latched")
}

func TestSetTime(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	setClock(sim, 0x00, 0x00, 0x00, 0x15, 0x06, 0x06, 0x24)

	require.NoError(t, d.SetTime(ctx, 23, 59, 58))
	hour, minute, second, err := d.GetTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{23, 59, 58}, []int{hour, minute, second})

	dt, err := d.GetDateTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, dt.DayMonth)
	assert.Equal(t, 6, dt.Month)
	assert.Equal(t, 2024, dt.Year)
}

func TestSetTime_InvalidStoredDate(t *testing.T) {
	d, sim := newSimDevice(t)
	setClock(sim, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
	err := d.SetTime(context.Background(), 12, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidDateTime)
}

func TestSetTime_RejectsInvalid(t *testing.T) {
	d, _ := newSimDevice(t)
	assert.ErrorIs(t, d.SetTime(context.Background(), 24, 0, 0), ErrInvalidDateTime)
	assert.ErrorIs(t, d.SetTime(context.Background(), 0, 60, 0), ErrInvalidDateTime)
}

func TestGetTime_Invalid(t *testing.T) {
	d, sim := newSimDevice(t)
	setClock(sim, 0x00, 0x61)
	hour, minute, second, err := d.GetTime(context.Background())
	require.ErrorIs(t, err, ErrInvalidDateTime)
	assert.Equal(t, []int{0, 0, 0}, []int{hour, minute, second})
}

func TestNowAndSet(t *testing.T) {
	ctx := context.Background()
	d, _ := newSimDevice(t)
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2031, time.March, 9, 7, 8, 9, 0, loc)

	require.NoError(t, d.Set(ctx, ts))
	now, err := d.Now(ctx, loc)
	require.NoError(t, err)
	assert.True(t, ts.Equal(now), "expected %s, got %s", ts, now)
}

func TestTrickleCharger(t *testing.T) {
	ctx := context.Background()
	d, sim := newSimDevice(t)
	value, err := d.TrickleCharger(ctx)
	require.NoError(t, err)
	assert.Equal(t, TrickleChargerDisabled, value)

	require.NoError(t, d.SetTrickleCharger(ctx, 0xA5))
	assert.Equal(t, byte(0xA5), sim.Register(RegTrickleCharger))
	require.NoError(t, d.DisableTrickleCharger(ctx))
	assert.Equal(t, TrickleChargerDisabled, sim.Register(RegTrickleCharger))
}
