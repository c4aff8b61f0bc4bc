package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			if c.Bool("json") {
				return renderJSON(c.App.Writer, info)
			}
			fmt.Fprintf(c.App.Writer, "signals-cli %s\n", info.Version)
			fmt.Fprintf(c.App.Writer, "  commit:   %s\n", info.Commit)
			fmt.Fprintf(c.App.Writer, "  built:    %s\n", info.BuildTime)
			fmt.Fprintf(c.App.Writer, "  go:       %s\n", info.GoVersion)
			fmt.Fprintf(c.App.Writer, "  platform: %s\n", info.Platform)
			return nil
		},
	}
}
