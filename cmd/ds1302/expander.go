package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ds1302/cmd/ds1302/console"
	"github.com/mklimuk/ds1302/gpio"
	"github.com/mklimuk/ds1302/rtcctx"
)

var expanderCmd = cli.Command{
	Name:  "expander",
	Usage: "MCP23017 expander carrying the DS1302 lines",
	Subcommands: cli.Commands{
		&expanderStatusCmd,
		&expanderReadCmd,
		&expanderConfigureCmd,
		&expanderPullCmd,
	},
}

// withExpander opens the configured expander bus for the duration of fn.
func withExpander(c *cli.Context, fn func(ctx context.Context, exp *gpio.MCP23017) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Fail("configuration error", err)
	}
	r := &rtc{cfg: cfg}
	defer r.Close()
	bus, err := r.expanderBus()
	if err != nil {
		return console.Fail("could not open expander bus", err)
	}
	exp := gpio.NewMCP23017(bus, cfg.Expander.Address)
	exp.SetRetryLimit(cfg.Expander.Retries)
	ctx, cancel := context.WithTimeout(rtcctx.SetVerbose(context.Background(), c.Bool("verbose")), 5*time.Second)
	defer cancel()
	return fn(ctx, exp)
}

var expanderReadCmd = cli.Command{
	Name: "read",
	Action: func(c *cli.Context) error {
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			data, err := exp.Read(ctx)
			if err != nil {
				return console.Exit(1, "could not read gpio: %v", err)
			}
			console.Printf("\nI/O A: %#X\nI/O B: %#X\n", data[0], data[1])
			return nil
		})
	},
}

var expanderStatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			data, err := exp.ReadSettingsA(ctx)
			if err != nil {
				return console.Exit(1, "could not read settings: %v", err)
			}
			console.Printf("\nIOCON content: %#X\n", data)
			return nil
		})
	},
}

var expanderConfigureCmd = cli.Command{
	Name:      "configure",
	ArgsUsage: "<IOCON value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		value, err := parseByte(c.Args().First())
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			if err := exp.WriteSettingsA(ctx, value); err != nil {
				return console.Exit(1, "could not write settings: %v", err)
			}
			console.Printf("\nWrote IOCON content: %#X\n", value)
			return nil
		})
	},
}

var expanderPullCmd = cli.Command{
	Name:      "pull",
	ArgsUsage: "<A|B> <GPPU value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		value, err := parseByte(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			pull := exp.PullUpA
			if c.Args().First() == "B" || c.Args().First() == "b" {
				pull = exp.PullUpB
			}
			if err := pull(ctx, value); err != nil {
				return console.Exit(1, "could not write pull up settings: %v", err)
			}
			console.Printf("\nWrote GPPU content: %#X\n", value)
			return nil
		})
	},
}
