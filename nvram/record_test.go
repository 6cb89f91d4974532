package nvram

import (
	"context"
	"testing"

	"github.com/mklimuk/ds1302"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRTC(t *testing.T) (*ds1302.Device, *ds1302.Simulator) {
	t.Helper()
	sim := ds1302.NewSimulator()
	rtc := ds1302.New(sim.CLK(), sim.IO(), sim.CE(), ds1302.WithHold(0))
	require.NoError(t, rtc.Configure())
	return rtc, sim
}

func TestRecord_Encode(t *testing.T) {
	buf := Record{BootCount: 0x01020304}.Encode()
	assert.Equal(t, []byte{'D', 'S', 0x01, 0x01, 0x02, 0x03, 0x04}, buf[:7])
	r, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), r.BootCount)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(make([]byte, RecordSize))
	assert.ErrorIs(t, err, ErrNoRecord)

	buf := Record{BootCount: 7}.Encode()
	buf[5] ^= 0xFF
	_, err = Decode(buf)
	assert.ErrorIs(t, err, ErrChecksum)

	buf = Record{BootCount: 7}.Encode()
	buf[2] = 9
	_, err = Decode(buf)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestIncrementBootCount(t *testing.T) {
	ctx := context.Background()
	rtc, sim := newRTC(t)
	sim.SetRAM(20, 0xAB)

	for i := uint32(1); i <= 3; i++ {
		count, err := IncrementBootCount(ctx, rtc)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
	r, err := Load(ctx, rtc)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), r.BootCount)
	assert.Equal(t, byte(0xAB), sim.RAM()[20], "bytes after the record are left alone")
}

func TestIncrementBootCount_Corrupted(t *testing.T) {
	ctx := context.Background()
	rtc, sim := newRTC(t)
	require.NoError(t, Store(ctx, rtc, Record{BootCount: 41}))
	sim.SetRAM(7, sim.RAM()[7]^0x01)

	count, err := IncrementBootCount(ctx, rtc)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)
}
