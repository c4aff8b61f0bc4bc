package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/config"
	"github.com/signalspoc/signals-cli/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
			{
				Name:        "set",
				Usage:       "Set a key in the config file",
				ArgsUsage:   "KEY VALUE",
				Description: "Keys: " + strings.Join(config.Keys(), ", "),
				Action:      configSet,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	cfg, err := rt.LoadConfig()
	if err != nil {
		return err
	}

	// Nested sections read better as YAML than as a FIELD/VALUE table.
	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format, true).Format(rt.out, cfg.Redacted())
}

func configPath(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(rt.out, rt.resolvedConfigPath())
	return nil
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config set KEY VALUE")
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	key, value := c.Args().Get(0), c.Args().Get(1)
	path := rt.resolvedConfigPath()
	if _, err := config.Set(path, key, value); err != nil {
		return err
	}

	shown := value
	if key == "store.passphrase" {
		shown = "***REDACTED***"
	}
	fmt.Fprintf(rt.out, "Set %s = %s in %s\n", key, shown, path)
	return nil
}

func (rt *Runtime) resolvedConfigPath() string {
	if rt.configPath != "" {
		return config.ExpandHome(rt.configPath)
	}
	return config.DefaultConfigPath()
}
