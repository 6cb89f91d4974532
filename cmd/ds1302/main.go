package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ds1302/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Printf("unexpected error: %v", err)
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ds1302"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", config.Version, config.BuildDate, config.Commit)
	app.Usage = "DS1302 real time clock cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "yaml configuration file",
			EnvVars: []string{"DS1302_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "line backend: periph, cdev, gobot, mcp23017, mcp2221 or sim",
		},
		&cli.StringFlag{Name: "clk", Usage: "CLK line"},
		&cli.StringFlag{Name: "io", Usage: "I/O line"},
		&cli.StringFlag{Name: "ce", Usage: "CE line"},
		&cli.StringFlag{Name: "chip", Usage: "gpio character device for the cdev backend"},
		&cli.DurationFlag{Name: "hold", Usage: "hold time between line transitions"},
		&cli.StringFlag{Name: "ntp-server", Usage: "NTP server"},
		&cli.StringFlag{
			Name:  "timezone",
			Usage: "time zone of the clock, IANA name or hour offset like +9",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
			Prefix:          "rtc",
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&setCmd,
		&getCmd,
		&diffCmd,
		&syncCmd,
		&statusCmd,
		&haltCmd,
		&protectCmd,
		&trickleCmd,
		&regCmd,
		&ramCmd,
		&usbCmd,
		&mcp2221Cmd,
		&expanderCmd,
	}
	return app
}

// loadConfig reads the configuration file and applies the global flags on
// top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("backend") {
		cfg.Backend = config.Backend(c.String("backend"))
	}
	if c.IsSet("clk") {
		cfg.Pins.CLK = c.String("clk")
	}
	if c.IsSet("io") {
		cfg.Pins.IO = c.String("io")
	}
	if c.IsSet("ce") {
		cfg.Pins.CE = c.String("ce")
	}
	if c.IsSet("chip") {
		cfg.Chip = c.String("chip")
	}
	if c.IsSet("hold") {
		cfg.Hold = config.Duration(c.Duration("hold"))
	}
	if c.IsSet("ntp-server") {
		cfg.NTP.Server = c.String("ntp-server")
	}
	if c.IsSet("timezone") {
		cfg.Timezone = c.String("timezone")
	}
	return cfg, cfg.Validate()
}
