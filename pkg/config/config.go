// Package config holds the ds1302 tool configuration and build metadata.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Build metadata, injected at link time by cmd/dev build.
var (
	Version   = "latest"
	Commit    = "none"
	BuildDate = "unknown"
)

type Backend string

const (
	BackendPeriph   Backend = "periph"
	BackendCdev     Backend = "cdev"
	BackendGobot    Backend = "gobot"
	BackendExpander Backend = "mcp23017"
	BackendMCP2221  Backend = "mcp2221"
	BackendSim      Backend = "sim"
)

var backends = []Backend{BackendPeriph, BackendCdev, BackendGobot, BackendExpander, BackendMCP2221, BackendSim}

var ErrInvalid = errors.New("invalid configuration")

// Duration reads "2s" or "500us" style values.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Pins names the CLK, I/O and CE lines. The meaning depends on the backend:
// periph pin names ("GPIO17"), gpiochip offsets ("17"), gobot pin ids, MCP23017
// pins ("B0".."B7", "A0".."A7") or MCP2221 GP pins ("0".."3").
type Pins struct {
	CLK string `yaml:"clk"`
	IO  string `yaml:"io"`
	CE  string `yaml:"ce"`
}

type Expander struct {
	// Bus is the host I2C bus, empty to use the MCP2221 I2C engine.
	Bus     string `yaml:"bus"`
	Address uint8  `yaml:"address"`
	Retries int    `yaml:"retries"`
}

type MCP2221 struct {
	Index        int      `yaml:"index"`
	ResponseWait Duration `yaml:"response_wait"`
}

type NTP struct {
	Server   string   `yaml:"server"`
	Retries  int      `yaml:"retries"`
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

type Config struct {
	Backend      Backend  `yaml:"backend"`
	Chip         string   `yaml:"chip"`
	Pins         Pins     `yaml:"pins"`
	Expander     Expander `yaml:"expander"`
	MCP2221      MCP2221  `yaml:"mcp2221"`
	Hold         Duration `yaml:"hold"`
	Timezone     string   `yaml:"timezone"`
	ReadInterval Duration `yaml:"read_interval"`
	NTP          NTP      `yaml:"ntp"`
}

func Default() Config {
	return Config{
		Backend: BackendPeriph,
		Chip:    "gpiochip0",
		Pins: Pins{
			CLK: "GPIO17",
			IO:  "GPIO27",
			CE:  "GPIO22",
		},
		Expander: Expander{
			Bus:     "",
			Address: 0x20,
			Retries: 3,
		},
		MCP2221: MCP2221{
			Index:        -1,
			ResponseWait: Duration(time.Millisecond),
		},
		Hold:         Duration(time.Microsecond),
		Timezone:     "Local",
		ReadInterval: Duration(time.Second),
		NTP: NTP{
			Server:   "pool.ntp.org",
			Retries:  10,
			Interval: Duration(2 * time.Second),
			Timeout:  Duration(5 * time.Second),
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("could not decode config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	known := false
	for _, b := range backends {
		if c.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.Backend != BackendSim && (c.Pins.CLK == "" || c.Pins.IO == "" || c.Pins.CE == "") {
		return fmt.Errorf("%w: clk, io and ce pins are required", ErrInvalid)
	}
	if c.Hold < 0 {
		return fmt.Errorf("%w: negative hold time", ErrInvalid)
	}
	if c.ReadInterval <= 0 {
		return fmt.Errorf("%w: read interval must be positive", ErrInvalid)
	}
	if c.NTP.Retries < 1 {
		return fmt.Errorf("%w: ntp retries must be at least 1", ErrInvalid)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Location resolves the configured time zone. Besides IANA names a fixed
// offset in hours is accepted, e.g. "+9" or "-3".
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	var hours int
	if n, err := fmt.Sscanf(c.Timezone, "%d", &hours); err == nil && n == 1 && (c.Timezone[0] == '+' || c.Timezone[0] == '-') {
		if hours < -12 || hours > 14 {
			return nil, fmt.Errorf("time zone offset out of range: %s", c.Timezone)
		}
		return time.FixedZone(fmt.Sprintf("UTC%s", c.Timezone), hours*60*60), nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
