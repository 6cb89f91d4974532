package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

// boards maps the supported single board computers to their GOARCH.
var boards = map[string]string{
	"nanopi-neo":  "arm",
	"nanopi-neo2": "arm64",
	"rpi":         "arm",
	"rpi64":       "arm64",
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the ds1302 command line tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			goos, _ := cmd.Flags().GetString("os")
			arch, _ := cmd.Flags().GetString("arch")
			version, _ := cmd.Flags().GetString("version")
			board, _ := cmd.Flags().GetString("board")
			if board != "" {
				a, ok := boards[board]
				if !ok {
					return fmt.Errorf("unknown board %q", board)
				}
				goos, arch = "linux", a
			}
			out := "dist/ds1302"
			if goos != runtime.GOOS || arch != runtime.GOARCH {
				out = strings.Join([]string{out, goos, arch}, "-")
			}
			slog.Info("building", "os", goos, "arch", arch, "version", version, "output", out)
			// hid needs cgo on the host; cross builds fall back to the pure Go backends
			return build.GoBuild(out, "./cmd/ds1302", build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: "github.com/mklimuk/ds1302/pkg/config",
				EnableCgo:     goos == runtime.GOOS && arch == runtime.GOARCH,
				Arch:          arch,
				OS:            goos,
			})
		},
	}
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("board", "", "target board (nanopi-neo, nanopi-neo2, rpi, rpi64)")
	return cmd
}
