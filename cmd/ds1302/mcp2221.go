package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/ds1302/adapter"
	"github.com/mklimuk/ds1302/cmd/ds1302/console"
	"github.com/mklimuk/ds1302/rtcctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB adapter diagnostics",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

// withAdapter opens the configured MCP2221 for the duration of fn.
func withAdapter(c *cli.Context, fn func(ctx context.Context, a *adapter.MCP2221) (interface{}, error)) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Fail("configuration error", err)
	}
	a := adapter.NewMCP2221(
		adapter.WithIndex(cfg.MCP2221.Index),
		adapter.WithResponseWait(cfg.MCP2221.ResponseWait.Std()),
	)
	if err := a.Open(); err != nil {
		return console.Exit(1, "adapter initialization error: %s", console.Red(err))
	}
	defer a.Close()
	ctx := rtcctx.SetVerbose(context.Background(), c.Bool("verbose"))
	res, err := fn(ctx, a)
	if err != nil {
		return console.Exit(1, "adapter communication error: %s", console.Red(err))
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(res); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		return withAdapter(c, func(ctx context.Context, a *adapter.MCP2221) (interface{}, error) {
			return a.Status(ctx)
		})
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current I2C transfer and free the bus",
	Action: func(c *cli.Context) error {
		return withAdapter(c, func(ctx context.Context, a *adapter.MCP2221) (interface{}, error) {
			return a.ReleaseBus(ctx)
		})
	},
}

var mcp2221GPIOCmd = cli.Command{
	Name:  "gpio",
	Usage: "GP pin designations and values",
	Action: func(c *cli.Context) error {
		return withAdapter(c, func(ctx context.Context, a *adapter.MCP2221) (interface{}, error) {
			params, err := a.GetGPIOParameters(ctx)
			if err != nil {
				return nil, err
			}
			values, err := a.ReadGPIO(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"parameters": params,
				"values":     values,
			}, nil
		})
	},
}
