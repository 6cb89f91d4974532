package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/v2"
	"periph.io/x/conn/v3/gpio"
)

type fakePin struct {
	gobot.DigitalPinner
	writes  []int
	applied int
	value   int
}

func (p *fakePin) Write(v int) error {
	p.writes = append(p.writes, v)
	return nil
}

func (p *fakePin) Read() (int, error) {
	return p.value, nil
}

func (p *fakePin) ApplyOptions(opts ...func(gobot.DigitalPinOptioner) bool) error {
	p.applied += len(opts)
	return nil
}

type fakeAdaptor struct {
	pins map[string]*fakePin
}

func (a *fakeAdaptor) DigitalPin(id string) (gobot.DigitalPinner, error) {
	pin, ok := a.pins[id]
	if !ok {
		return nil, errors.New("not a valid pin")
	}
	return pin, nil
}

func TestGobotLine(t *testing.T) {
	pin := &fakePin{value: 1}
	line, err := NewGobotLine(&fakeAdaptor{pins: map[string]*fakePin{"7": pin}}, "7")
	require.NoError(t, err)

	// direction is applied once, levels are written afterwards
	require.NoError(t, line.Reset())
	require.NoError(t, line.Out(gpio.High))
	require.NoError(t, line.Out(gpio.Low))
	assert.Equal(t, 1, pin.applied)
	assert.Equal(t, []int{1, 0}, pin.writes)

	require.NoError(t, line.In())
	require.NoError(t, line.In())
	assert.Equal(t, 2, pin.applied)
	level, err := line.Read()
	require.NoError(t, err)
	assert.Equal(t, gpio.High, level)
}

func TestGobotLine_UnknownPin(t *testing.T) {
	_, err := NewGobotLine(&fakeAdaptor{}, "99")
	assert.Error(t, err)
}
