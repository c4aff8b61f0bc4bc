package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/config"
	"github.com/signalspoc/signals-cli/internal/cli/navigate"
	"github.com/signalspoc/signals-cli/internal/cli/repl"
	"github.com/signalspoc/signals-cli/internal/infra/confloader"
	"github.com/signalspoc/signals-cli/internal/telemetry/logger"
)

// osExit ends the process after a signal-driven shutdown.
var osExit = os.Exit

var errShuttingDown = errors.New("shutting down")

// REPLCommand returns the repl command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:    "repl",
		Aliases: []string{"shell"},
		Usage:   "Start an interactive shell",
		Action:  replAction,
	}
}

func replAction(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}
	rt.setInteractive(true)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	go func() {
		if sig, _ := rt.Shutdown.Wait(ctx); sig != nil {
			osExit(130)
		}
	}()

	configPath := rt.resolvedConfigPath()
	stopWatch := rt.watchConfig(configPath)
	defer stopWatch()

	history := repl.NewHistory(filepath.Join(filepath.Dir(configPath), "history"))
	if err := history.Load(); err != nil {
		rt.Log.Debug("failed to load history", "error", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			rt.Log.Warn("failed to save history", "error", err)
		}
	}()

	if !rt.Session.IsAuthenticated() {
		rt.Router.Navigate(navigate.RouteLogin)
	}

	login := func(ctx context.Context, username, password string) (bool, string) {
		r := rt.Session.Login(ctx, username, password)
		return r.Success, r.Error
	}

	r := repl.New(rt.runLine,
		repl.WithIO(rt.reader(), rt.out),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandPaths(replCommands()))),
		repl.WithLogin(rt.Router, login),
	)
	return r.Run(ctx)
}

// runLine runs one shell line. Lines arriving after a signal started the
// shutdown are refused, since the store may already be closed.
func (rt *Runtime) runLine(ctx context.Context, args []string) error {
	select {
	case <-rt.Shutdown.Done():
		return errShuttingDown
	default:
	}
	return rt.lineApp().RunContext(ctx, append([]string{"signals-cli"}, args...))
}

// watchConfig re-applies log.level whenever the config file changes.
func (rt *Runtime) watchConfig(path string) (stop func()) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Log.Slog()))
	if err != nil {
		rt.Log.Debug("config watcher unavailable", "error", err)
		return func() {}
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return func() {}
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(path, rt.overrides)
		if err != nil {
			rt.Log.Warn("ignoring invalid config change", "error", err)
			return
		}
		prev := logger.CurrentLevel()
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			rt.Log.Warn("ignoring log level change", "error", err)
			return
		}
		if level := logger.CurrentLevel(); level != prev {
			rt.Log.Info("log level changed", "from", prev, "to", level)
		}
	})
	w.StartAsync()
	return func() { w.Stop() }
}

// replCommands are the commands available inside the shell.
func replCommands() []*cli.Command {
	var cmds []*cli.Command
	for _, cmd := range commands() {
		if cmd.Name == "repl" {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// lineApp builds the app that runs one shell line on the shared runtime.
// --output and --wide apply to that line only.
func (rt *Runtime) lineApp() *cli.App {
	var (
		savedOutput string
		savedWide   bool
	)
	return &cli.App{
		Name:           "signals-cli",
		HideVersion:    true,
		Flags:          globalFlags(),
		Commands:       replCommands(),
		Metadata:       map[string]any{runtimeKey: rt},
		Writer:         rt.out,
		ErrWriter:      rt.errOut,
		Reader:         rt.reader(),
		ExitErrHandler: func(*cli.Context, error) {},
		Before: func(c *cli.Context) error {
			savedOutput, savedWide = rt.Config.Output, rt.wide
			if c.IsSet("output") {
				rt.Config.Output = c.String("output")
			}
			if c.IsSet("wide") {
				rt.wide = c.Bool("wide")
			}
			return nil
		},
		After: func(c *cli.Context) error {
			rt.Config.Output, rt.wide = savedOutput, savedWide
			return nil
		},
	}
}

// commandPaths lists "cmd" and "cmd sub" for completion.
func commandPaths(cmds []*cli.Command) []string {
	var paths []string
	for _, cmd := range cmds {
		paths = append(paths, cmd.Name)
		for _, sub := range cmd.Subcommands {
			paths = append(paths, cmd.Name+" "+sub.Name)
		}
	}
	return paths
}
