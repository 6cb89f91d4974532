package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/mklimuk/ds1302"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

// fakeHID records requests and answers with queued reports.
type fakeHID struct {
	requests  [][]byte
	responses [][]byte
	closed    bool
}

func (f *fakeHID) Write(p []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeHID) Read(p []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, errors.New("no report")
	}
	copy(p, f.responses[0])
	f.responses = f.responses[1:]
	return 64, nil
}

func (f *fakeHID) Close() error {
	f.closed = true
	return nil
}

func report(b ...byte) []byte {
	r := make([]byte, 64)
	copy(r, b)
	return r
}

func newTestAdapter(responses ...[]byte) (*MCP2221, *fakeHID) {
	dev := &fakeHID{responses: responses}
	return NewMCP2221(WithDevice(dev), WithResponseWait(0)), dev
}

func TestMCP2221_WriteToAddr(t *testing.T) {
	a, dev := newTestAdapter(report(0x90, 0x00))
	require.NoError(t, a.WriteToAddr(context.Background(), 0x21, []byte{0x14, 0x01}))
	require.Len(t, dev.requests, 1)
	assert.Equal(t, []byte{0x90, 0x02, 0x00, 0x42, 0x14, 0x01}, dev.requests[0][:6])
}

func TestMCP2221_WriteBusy(t *testing.T) {
	a, _ := newTestAdapter(report(0x90, 0x01))
	err := a.WriteToAddr(context.Background(), 0x21, []byte{0x00})
	assert.ErrorIs(t, err, ds1302.ErrBusBusy)
}

func TestMCP2221_ReadFromAddr(t *testing.T) {
	a, dev := newTestAdapter(report(0x91, 0x00), report(0x40, 0x00, 0x00, 0x02, 0xAB, 0xCD))
	buf := make([]byte, 2)
	require.NoError(t, a.ReadFromAddr(context.Background(), 0x21, buf))
	assert.Equal(t, []byte{0xAB, 0xCD}, buf)
	require.Len(t, dev.requests, 2)
	assert.Equal(t, byte(0x43), dev.requests[0][3])
	assert.Equal(t, byte(0x40), dev.requests[1][0])
}

func TestMCP2221_SetGPIO(t *testing.T) {
	a, dev := newTestAdapter(report(0x50, 0x00), report(0x50, 0x00))
	value := byte(1)
	out := GPIOModeOut
	require.NoError(t, a.SetGPIO(context.Background(), 2, &value, &out))
	// GP2 occupies bytes 10..13
	assert.Equal(t, []byte{0x01, 0x01, 0x01, 0x00}, dev.requests[0][10:14])

	in := GPIOModeIn
	require.NoError(t, a.SetGPIO(context.Background(), 0, nil, &in))
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x01}, dev.requests[1][2:6])

	assert.Error(t, a.SetGPIO(context.Background(), 4, &value, nil))
}

func TestMCP2221_ReadGPIO(t *testing.T) {
	a, _ := newTestAdapter(report(0x51, 0x00, 0x01, 0x00, 0x00, 0x01, 0xEE, 0xEE, 0x01, 0x01))
	values, err := a.ReadGPIO(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MCP2221GPIOValues{
		GPIO0Mode:  GPIOModeOut,
		GPIO0Value: 1,
		GPIO1Mode:  GPIOModeIn,
		GPIO1Value: 0,
		GPIO2Mode:  GPIOModeNoOperation,
		GPIO2Value: 0xEE,
		GPIO3Mode:  GPIOModeIn,
		GPIO3Value: 1,
	}, values)
	assert.Equal(t, byte(1), values.Value(3))
}

func TestMCP2221_Status(t *testing.T) {
	resp := report(0x10, 0x00)
	resp[9], resp[10] = 0x05, 0x00
	resp[13] = 3
	resp[16], resp[17] = 0x42, 0x00
	a, _ := newTestAdapter(resp)
	status, err := a.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(5), status.LastWriteRequestedSize)
	assert.Equal(t, 3, status.I2CDataBufferCounter)
	assert.Equal(t, "4200", status.CurrentAddress)
}

func TestGPIOLine(t *testing.T) {
	a, dev := newTestAdapter(
		report(0x50, 0x00), // reset: value and direction
		report(0x50, 0x00), // high: value only
		report(0x50, 0x00), // in: direction only
		report(0x51, 0x00, 0x00, 0x00, 0x01, 0x01),
	)
	line := a.GPIOLine(1)
	require.NoError(t, line.Reset())
	assert.Equal(t, []byte{0x01, 0x00, 0x01, 0x00}, dev.requests[0][6:10])
	require.NoError(t, line.Out(gpio.High))
	assert.Equal(t, []byte{0x01, 0x01, 0x00, 0x00}, dev.requests[1][6:10])
	require.NoError(t, line.In())
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x01}, dev.requests[2][6:10])
	level, err := line.Read()
	require.NoError(t, err)
	assert.Equal(t, gpio.High, level)
}

func TestMCP2221_Close(t *testing.T) {
	a, dev := newTestAdapter()
	require.NoError(t, a.Open())
	require.NoError(t, a.Close())
	assert.True(t, dev.closed)
}
