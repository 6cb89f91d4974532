package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ds1302.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backend: mcp23017
pins:
  clk: B0
  io: B1
  ce: B2
expander:
  bus: /dev/i2c-1
  address: 0x21
hold: 5us
timezone: "+9"
ntp:
  server: time.example.org
  interval: 500ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendExpander, cfg.Backend)
	assert.Equal(t, Pins{CLK: "B0", IO: "B1", CE: "B2"}, cfg.Pins)
	assert.Equal(t, uint8(0x21), cfg.Expander.Address)
	assert.Equal(t, 5*time.Microsecond, cfg.Hold.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.NTP.Interval.Std())
	// untouched values keep their defaults
	assert.Equal(t, 10, cfg.NTP.Retries)

	loc, err := cfg.Location()
	require.NoError(t, err)
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "backend: spi\n"},
		{"bad duration", "hold: fast\n"},
		{"unknown field", "colour: red\n"},
		{"unknown zone", "timezone: Mars/Olympus\n"},
		{"offset out of range", "timezone: \"+15\"\n"},
		{"missing pin", "pins:\n  clk: \"\"\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.content))
			assert.Error(t, err)
		})
	}
}

func TestValidate_SimNeedsNoPins(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendSim
	cfg.Pins = Pins{}
	assert.NoError(t, cfg.Validate())
}
