package main

import (
	"context"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ds1302"
	"github.com/mklimuk/ds1302/cmd/ds1302/console"
)

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// addressAndValue reads "<addr>" or "<addr> <value>" arguments.
func addressAndValue(c *cli.Context, withValue bool) (addr byte, value byte, err error) {
	expected := 1
	if withValue {
		expected = 2
	}
	if c.NArg() != expected {
		return 0, 0, console.Exit(1, "expected %d arguments, got %d", expected, c.NArg())
	}
	addr, err = parseByte(c.Args().Get(0))
	if err != nil {
		return 0, 0, console.Exit(1, "could not decode address: %v", err)
	}
	if withValue {
		value, err = parseByte(c.Args().Get(1))
		if err != nil {
			return 0, 0, console.Exit(1, "could not decode value: %v", err)
		}
	}
	return addr, value, nil
}

var regCmd = cli.Command{
	Name:  "reg",
	Usage: "raw clock register access",
	Subcommands: cli.Commands{
		&regReadCmd,
		&regWriteCmd,
	},
}

var regReadCmd = cli.Command{
	Name:      "read",
	ArgsUsage: "<register 0..30>",
	Action: func(c *cli.Context) error {
		addr, _, err := addressAndValue(c, false)
		if err != nil {
			return err
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, _ *time.Location) error {
			value, err := r.ReadClockRegister(ctx, ds1302.Register(addr))
			if err != nil {
				return console.Fail("read failed", err)
			}
			console.PInfof(console.PictoPin, "register %#02x: %#02x", addr, value)
			return nil
		})
	},
}

var regWriteCmd = cli.Command{
	Name:      "write",
	ArgsUsage: "<register 0..30> <value>",
	Action: func(c *cli.Context) error {
		addr, value, err := addressAndValue(c, true)
		if err != nil {
			return err
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, _ *time.Location) error {
			if err := r.WriteClockRegister(ctx, ds1302.Register(addr), value); err != nil {
				return console.Fail("write failed", err)
			}
			console.PInfof(console.PictoPin, "wrote %#02x to register %#02x", value, addr)
			return nil
		})
	},
}

var ramCmd = cli.Command{
	Name:  "ram",
	Usage: "battery-backed RAM access",
	Subcommands: cli.Commands{
		&ramReadCmd,
		&ramWriteCmd,
		&ramDumpCmd,
		&ramFillCmd,
	},
}

var ramReadCmd = cli.Command{
	Name:      "read",
	ArgsUsage: "<address 0..30>",
	Action: func(c *cli.Context) error {
		addr, _, err := addressAndValue(c, false)
		if err != nil {
			return err
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, _ *time.Location) error {
			value, err := r.ReadRAM(ctx, addr)
			if err != nil {
				return console.Fail("read failed", err)
			}
			console.PInfof(console.PictoMemory, "ram %#02x: %#02x", addr, value)
			return nil
		})
	},
}

var ramWriteCmd = cli.Command{
	Name:      "write",
	ArgsUsage: "<address 0..30> <value>",
	Action: func(c *cli.Context) error {
		addr, value, err := addressAndValue(c, true)
		if err != nil {
			return err
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, _ *time.Location) error {
			if err := r.WriteRAM(ctx, addr, value); err != nil {
				return console.Fail("write failed", err)
			}
			console.PInfof(console.PictoMemory, "wrote %#02x to ram %#02x", value, addr)
			return nil
		})
	},
}

var ramDumpCmd = cli.Command{
	Name:  "dump",
	Usage: "read the whole RAM in one burst",
	Action: func(c *cli.Context) error {
		return withRTC(c, false, func(ctx context.Context, r *rtc, _ *time.Location) error {
			data, err := r.ReadRAMBurst(ctx, ds1302.RAMSize)
			if err != nil {
				return console.Fail("read failed", err)
			}
			console.Printf("%s", hex.Dump(data))
			return nil
		})
	},
}

var ramFillCmd = cli.Command{
	Name:      "fill",
	Usage:     "write hex data from address 0 in one burst",
	ArgsUsage: "<hex data, e.g. 00ff10>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		data, err := hex.DecodeString(c.Args().First())
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		return withRTC(c, false, func(ctx context.Context, r *rtc, _ *time.Location) error {
			n, err := r.WriteRAMBurst(ctx, data)
			if err != nil {
				return console.Fail("write failed", err)
			}
			if n < len(data) {
				console.Warnf("only the first %d bytes fit into the RAM", n)
			}
			console.PInfof(console.PictoMemory, "wrote %d bytes", n)
			return nil
		})
	},
}
