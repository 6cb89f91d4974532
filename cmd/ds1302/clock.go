package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/ds1302"
	"github.com/mklimuk/ds1302/cmd/ds1302/console"
	"github.com/mklimuk/ds1302/nvram"
	"github.com/mklimuk/ds1302/pkg/config"
	"github.com/mklimuk/ds1302/rtcctx"
	"github.com/mklimuk/ds1302/timesync"
)

const inputLayout = time.DateTime

var watchFlag = &cli.BoolFlag{
	Name:    "watch",
	Aliases: []string{"w"},
	Usage:   "keep reading the clock every read interval",
}

// withRTC loads the configuration, opens the device and runs fn. begin
// starts the oscillator first.
func withRTC(c *cli.Context, begin bool, fn func(ctx context.Context, r *rtc, loc *time.Location) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Fail("configuration error", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return console.Fail("configuration error", err)
	}
	r, err := openRTC(cfg)
	if err != nil {
		return console.Fail("could not open rtc", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			console.Warnf("could not release lines: %v", err)
		}
	}()
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = rtcctx.SetVerbose(ctx, c.Bool("verbose"))
	if begin {
		if err := r.Begin(ctx); err != nil {
			return console.Fail("could not start rtc", err)
		}
	}
	return fn(ctx, r, loc)
}

func ntpSource(cfg config.Config) *timesync.NTPSource {
	return timesync.NewNTPSource(cfg.NTP.Server,
		timesync.WithRetries(cfg.NTP.Retries),
		timesync.WithInterval(cfg.NTP.Interval.Std()),
		timesync.WithTimeout(cfg.NTP.Timeout.Std()),
	)
}

var setCmd = cli.Command{
	Name:      "set",
	Usage:     "set the clock from NTP or from the given local time",
	ArgsUsage: "[\"2006-01-02 15:04:05\"]",
	Action: func(c *cli.Context) error {
		return withRTC(c, true, func(ctx context.Context, r *rtc, loc *time.Location) error {
			var src timesync.Source = ntpSource(r.cfg)
			if c.NArg() > 0 {
				t, err := time.ParseInLocation(inputLayout, c.Args().First(), loc)
				if err != nil {
					return console.Exit(1, "could not parse time: %v", err)
				}
				src = timesync.NewFixedSource(t)
			}
			written, err := timesync.Sync(ctx, r, src, loc)
			if err != nil {
				return console.Fail("could not set clock", err)
			}
			console.PInfof(console.PictoClock, "clock set to %s", console.White(ds1302.FromTime(written)))
			return nil
		})
	},
}

var getCmd = cli.Command{
	Name:  "get",
	Usage: "read the clock",
	Flags: []cli.Flag{watchFlag},
	Action: func(c *cli.Context) error {
		return withRTC(c, true, func(ctx context.Context, r *rtc, loc *time.Location) error {
			return read(ctx, c, r, loc)
		})
	},
}

func read(ctx context.Context, c *cli.Context, r *rtc, loc *time.Location) error {
	if !c.Bool("watch") {
		dt, err := r.GetDateTime(ctx)
		if err != nil {
			return console.Fail("read failed", err)
		}
		console.PInfof(console.PictoCalendar, "%s", console.White(dt))
		return nil
	}
	err := timesync.Monitor(ctx, r, loc, r.cfg.ReadInterval.Std(), func(t time.Time, err error) {
		if err != nil {
			console.Errorf("read failed: %v", err)
			return
		}
		console.PInfof(console.PictoCalendar, "%s", console.White(ds1302.FromTime(t)))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var diffCmd = cli.Command{
	Name:  "diff",
	Usage: "compare the clock with NTP",
	Action: func(c *cli.Context) error {
		return withRTC(c, true, func(ctx context.Context, r *rtc, loc *time.Location) error {
			drift, err := timesync.Diff(ctx, r, ntpSource(r.cfg), loc)
			if err != nil {
				return console.Fail("could not compare clocks", err)
			}
			console.PInfof(console.PictoGlobe, "NTP date/time is: %s", drift.Reference.Format(inputLayout))
			console.PInfof(console.PictoClock, "RTC date/time is: %s", drift.RTC.Format(inputLayout))
			console.Printf("time difference is: %s\n", console.Bold(drift.Offset))
			return nil
		})
	},
}

var syncCmd = cli.Command{
	Name:  "sync",
	Usage: "set the clock on the first run after a power loss, read it afterwards",
	Flags: []cli.Flag{watchFlag},
	Action: func(c *cli.Context) error {
		return withRTC(c, true, func(ctx context.Context, r *rtc, loc *time.Location) error {
			count, err := nvram.IncrementBootCount(ctx, r)
			if err != nil {
				return console.Fail("could not update boot count", err)
			}
			console.PInfof(console.PictoBattery, "boot count: %d", count)
			if count > 1 {
				return read(ctx, c, r, loc)
			}
			written, err := timesync.Sync(ctx, r, ntpSource(r.cfg), loc)
			if err != nil {
				return console.Fail("could not set clock", err)
			}
			console.PInfof(console.PictoClock, "clock set to %s", console.White(ds1302.FromTime(written)))
			return nil
		})
	},
}

type status struct {
	DateTime       string            `yaml:"date_time"`
	Error          string            `yaml:"error,omitempty"`
	Halted         bool              `yaml:"halted"`
	WriteProtected bool              `yaml:"write_protected"`
	TrickleCharger string            `yaml:"trickle_charger"`
	BootCount      *uint32           `yaml:"boot_count,omitempty"`
	Registers      map[string]string `yaml:"registers"`
}

var registerNames = []string{"seconds", "minutes", "hours", "day_month", "month", "day_week", "year", "write_protect", "trickle_charger"}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "print the chip state as yaml without changing it",
	Action: func(c *cli.Context) error {
		return withRTC(c, false, func(ctx context.Context, r *rtc, loc *time.Location) error {
			var st status
			dt, err := r.GetDateTime(ctx)
			if err != nil {
				st.Error = err.Error()
			} else {
				st.DateTime = dt.String()
			}
			if st.Halted, err = r.IsHalted(ctx); err != nil {
				return console.Fail("read failed", err)
			}
			if st.WriteProtected, err = r.IsWriteProtected(ctx); err != nil {
				return console.Fail("read failed", err)
			}
			regs, err := r.ReadClockBurst(ctx, 8)
			if err != nil {
				return console.Fail("read failed", err)
			}
			tc, err := r.TrickleCharger(ctx)
			if err != nil {
				return console.Fail("read failed", err)
			}
			regs = append(regs, tc)
			st.TrickleCharger = fmt.Sprintf("%#02x", tc)
			st.Registers = make(map[string]string, len(regs))
			for i, v := range regs {
				st.Registers[registerNames[i]] = fmt.Sprintf("%#02x", v)
			}
			if rec, err := nvram.Load(ctx, r); err == nil {
				st.BootCount = &rec.BootCount
			}
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			if err := enc.Encode(st); err != nil {
				return console.Exit(1, "encoding error: %s", console.Red(err))
			}
			return nil
		})
	},
}

func parseSwitch(c *cli.Context) (bool, error) {
	if c.NArg() != 1 {
		return false, console.Exit(1, "expected on or off, got %d arguments", c.NArg())
	}
	switch c.Args().First() {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, console.Exit(1, "expected on or off, got %q", c.Args().First())
}

var haltCmd = cli.Command{
	Name:      "halt",
	Usage:     "stop or start the oscillator",
	ArgsUsage: "on|off",
	Action: func(c *cli.Context) error {
		halt, err := parseSwitch(c)
		if err != nil {
			return err
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, loc *time.Location) error {
			if err := r.SetHalt(ctx, halt); err != nil {
				return console.Fail("could not change halt flag", err)
			}
			halted, err := r.IsHalted(ctx)
			if err != nil {
				return console.Fail("read failed", err)
			}
			if halted != halt {
				return console.Exit(1, "halt flag did not change, is the chip write protected?")
			}
			console.PInfof(console.PictoStop, "oscillator %s", console.OnOff(halted, "halted", "running"))
			return nil
		})
	},
}

var protectCmd = cli.Command{
	Name:      "protect",
	Usage:     "set or clear write protection",
	ArgsUsage: "on|off",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		protect, err := parseSwitch(c)
		if err != nil {
			return err
		}
		if !protect && !c.Bool("yes") {
			ok, err := console.Confirm("clear write protection of the clock and its RAM?")
			if err != nil {
				return console.Fail("prompt failed", err)
			}
			if !ok {
				return nil
			}
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, loc *time.Location) error {
			if err := r.SetWriteProtect(ctx, protect); err != nil {
				return console.Fail("could not change write protection", err)
			}
			picto := console.PictoUnlock
			if protect {
				picto = console.PictoLock
			}
			console.PInfof(picto, "write protection %s", console.OnOff(protect, "on", "off"))
			return nil
		})
	},
}

var trickleCmd = cli.Command{
	Name:      "trickle",
	Usage:     "read or write the trickle charge register",
	ArgsUsage: "[off|0xA5]",
	Action: func(c *cli.Context) error {
		return withRTC(c, false, func(ctx context.Context, r *rtc, loc *time.Location) error {
			if c.NArg() > 0 {
				var err error
				if c.Args().First() == "off" {
					err = r.DisableTrickleCharger(ctx)
				} else {
					var value byte
					value, err = parseByte(c.Args().First())
					if err != nil {
						return console.Exit(1, "could not decode value: %v", err)
					}
					err = r.SetTrickleCharger(ctx, value)
				}
				if err != nil {
					return console.Fail("could not write trickle charger", err)
				}
			}
			value, err := r.TrickleCharger(ctx)
			if err != nil {
				return console.Fail("read failed", err)
			}
			console.PInfof(console.PictoBattery, "trickle charger: %#02x (%s)", value, describeTrickle(value))
			return nil
		})
	},
}

// describeTrickle decodes TCS (bits 7..4), diodes (3..2) and resistor (1..0).
func describeTrickle(value byte) string {
	if value>>4 != 0b1010 {
		return console.Green("disabled")
	}
	diodes := map[byte]string{0b01: "1 diode", 0b10: "2 diodes"}[(value>>2)&0x03]
	resistor := map[byte]string{0b01: "2kΩ", 0b10: "4kΩ", 0b11: "8kΩ"}[value&0x03]
	if diodes == "" || resistor == "" {
		return console.Green("disabled")
	}
	return console.Yellow(fmt.Sprintf("enabled, %s, %s", diodes, resistor))
}
