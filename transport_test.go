package ds1302

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

var errLine = errors.New("line failure")

type recorder struct {
	events []string
}

// recLine records every call as "<name>:<op>"; reads are served from levels.
type recLine struct {
	name   string
	rec    *recorder
	levels []gpio.Level
	failOn int // fail the n-th Out call, 0 means never
	outs   int
}

func (l *recLine) Reset() error {
	l.rec.events = append(l.rec.events, l.name+":reset")
	return nil
}

func (l *recLine) Out(level gpio.Level) error {
	l.outs++
	if l.failOn != 0 && l.outs == l.failOn {
		return errLine
	}
	l.rec.events = append(l.rec.events, l.name+":"+lvl(level))
	return nil
}

func (l *recLine) In() error {
	l.rec.events = append(l.rec.events, l.name+":in")
	return nil
}

func (l *recLine) Read() (gpio.Level, error) {
	l.rec.events = append(l.rec.events, l.name+":read")
	if len(l.levels) == 0 {
		return gpio.Low, nil
	}
	level := l.levels[0]
	l.levels = l.levels[1:]
	return level, nil
}

func lvl(level gpio.Level) string {
	if level == gpio.High {
		return "H"
	}
	return "L"
}

func newRecTransport() (*transport, *recorder, *int) {
	rec := &recorder{}
	sleeps := 0
	return &transport{
		clk:     &recLine{name: "clk", rec: rec},
		io:      &recLine{name: "io", rec: rec},
		ce:      &recLine{name: "ce", rec: rec},
		hold:    time.Microsecond,
		sleeper: SleeperFunc(func(time.Duration) { sleeps++ }),
	}, rec, &sleeps
}

func TestTransport_BeginOrder(t *testing.T) {
	tr, rec, _ := newRecTransport()
	f := &frame{t: tr}
	tr.begin(f)
	require.NoError(t, f.err)
	assert.Equal(t, []string{"clk:L", "io:L", "ce:H"}, rec.events)
}

func TestTransport_End(t *testing.T) {
	tr, rec, sleeps := newRecTransport()
	require.NoError(t, tr.end())
	assert.Equal(t, []string{"ce:L"}, rec.events)
	assert.Equal(t, 1, *sleeps)
}

func TestTransport_SendCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  byte
	}{
		{"write register", Command(RegionClock, 3, Write)},
		{"read register", Command(RegionClock, 3, Read)},
		{"ram burst read", BurstCommand(RegionRAM, Read)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr, rec, sleeps := newRecTransport()
			f := &frame{t: tr}
			tr.sendCommand(f, test.cmd)
			require.NoError(t, f.err)

			var expected []string
			expectedSleeps := 0
			for i := 0; i < 8; i++ {
				expected = append(expected, "io:"+lvl(gpio.Level(test.cmd&(1<<i) != 0)), "clk:H")
				expectedSleeps += 2
				if i == 7 && test.cmd&0x01 == 1 {
					expected = append(expected, "io:in")
					continue
				}
				expected = append(expected, "clk:L")
				expectedSleeps++
			}
			assert.Equal(t, expected, rec.events)
			assert.Equal(t, expectedSleeps, *sleeps)
		})
	}
}

func TestTransport_WriteByteLSBFirst(t *testing.T) {
	tr, rec, _ := newRecTransport()
	f := &frame{t: tr}
	tr.writeByte(f, 0b1000_0001)
	require.NoError(t, f.err)
	var data []string
	for _, e := range rec.events {
		if e[:3] == "io:" {
			data = append(data, e)
		}
	}
	assert.Equal(t, []string{"io:H", "io:L", "io:L", "io:L", "io:L", "io:L", "io:L", "io:H"}, data)
}

func TestTransport_ReadByte(t *testing.T) {
	tr, rec, _ := newRecTransport()
	value := byte(0x5A)
	io := tr.io.(*recLine)
	for i := 0; i < 8; i++ {
		io.levels = append(io.levels, gpio.Level(value&(1<<i) != 0))
	}
	f := &frame{t: tr}
	assert.Equal(t, value, tr.readByte(f))
	require.NoError(t, f.err)
	// each bit: clock pulse then sample
	assert.Equal(t, []string{"clk:H", "clk:L", "io:read"}, rec.events[:3])
	assert.Len(t, rec.events, 24)
}

func TestTransport_ChipEnableDroppedOnLineError(t *testing.T) {
	tr, rec, _ := newRecTransport()
	// fail while shifting the command byte
	tr.clk.(*recLine).failOn = 4
	err := tr.transfer(context.Background(), Command(RegionClock, 0, Write), func(f *frame) {
		tr.writeByte(f, 0xFF)
	})
	require.ErrorIs(t, err, errLine)
	// nothing is shifted after the failing edge, CE still goes low
	assert.Equal(t, []string{
		"clk:L", "io:L", "ce:H",
		"io:L", "clk:H", "clk:L",
		"io:L",
		"ce:L",
	}, rec.events)
}

func TestTransport_CancelledContext(t *testing.T) {
	tr, rec, _ := newRecTransport()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.transfer(ctx, Command(RegionClock, 0, Read), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.events)
}
