package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/output"
	"github.com/signalspoc/signals-cli/internal/infra/buildinfo"
)

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:                 "signals-cli",
		Usage:                "Command-line client for the Signals API",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		Commands:             commands(),
		EnableBashCompletion: true,
		Metadata:             map[string]any{},
		Before: func(c *cli.Context) error {
			rt := newRuntime(c.App.Writer, c.App.ErrWriter, c.App.Reader)
			rt.configPath = c.String("config")
			rt.overrides = flagOverrides(c)
			rt.wide = c.Bool("wide")
			c.App.Metadata[runtimeKey] = rt
			return nil
		},
		After: func(c *cli.Context) error {
			if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
				return rt.Close()
			}
			return nil
		},
	}
	return app
}

func commands() []*cli.Command {
	return []*cli.Command{
		LoginCommand(),
		LogoutCommand(),
		WhoamiCommand(),
		StatusCommand(),
		ProjectsCommand(),
		TasksCommand(),
		UsersCommand(),
		CommentsCommand(),
		AlertsCommand(),
		SyncCommand(),
		ConfigCommand(),
		REPLCommand(),
		VersionCommand(),
	}
}

// globalFlags returns the global CLI flags. Flags the user sets take
// precedence over the config file and SIGNALS_* variables.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.signals/cli.yaml)",
			EnvVars: []string{"SIGNALS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "API base URL (e.g., http://localhost:8080/api/v1)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show all columns and untruncated values",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
	}
}

// flagOverrides maps the global flags the user set to config keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := map[string]any{}
	if c.IsSet("server") {
		m["server"] = c.String("server")
	}
	if c.IsSet("output") {
		m["output"] = c.String("output")
	}
	if c.IsSet("timeout") {
		m["timeout"] = c.Duration("timeout").String()
	}
	if c.IsSet("log-level") {
		m["log.level"] = c.String("log-level")
	}
	if c.Bool("verbose") {
		m["log.level"] = "debug"
	}
	if c.Bool("ephemeral") {
		m["store.backend"] = "memory"
	}
	if c.Bool("insecure") {
		m["tls.insecure"] = true
	}
	return m
}

// runtimeFrom returns the runtime installed by App.Before.
func runtimeFrom(c *cli.Context) (*Runtime, error) {
	rt, ok := c.App.Metadata[runtimeKey].(*Runtime)
	if !ok {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// connect returns the runtime with the session layer opened.
func connect(c *cli.Context) (*Runtime, error) {
	rt, err := runtimeFrom(c)
	if err != nil {
		return nil, err
	}
	if err := rt.Open(c.Context); err != nil {
		return nil, err
	}
	return rt, nil
}

// render writes data in the configured output format.
func render(rt *Runtime, data any) error {
	format, err := output.ParseFormat(rt.Config.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, rt.wide).Format(rt.out, data)
}

func renderJSON(w io.Writer, data any) error {
	return (&output.JSONFormatter{}).Format(w, data)
}

// isTable reports whether the human-readable table format is selected.
func isTable(rt *Runtime) bool {
	format, _ := output.ParseFormat(rt.Config.Output)
	return format == output.FormatTable
}

// idArg parses the n-th positional argument as a numeric ID.
func idArg(c *cli.Context, n int, name string) (int64, error) {
	raw := c.Args().Get(n)
	if raw == "" {
		return 0, fmt.Errorf("%s required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// PrintError prints an error message to w (stderr when nil).
func PrintError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
