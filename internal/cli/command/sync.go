package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/api"
	"github.com/signalspoc/signals-cli/internal/cli/output"
)

// SyncCommand returns the sync subcommand group.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize data from connectors",
		Subcommands: []*cli.Command{
			{
				Name:      "test",
				Usage:     "Test connectivity to a connector",
				ArgsUsage: "CONNECTOR (" + strings.Join(api.Connectors, ", ") + ")",
				Action:    syncTest,
			},
			{
				Name:      "run",
				Usage:     "Run a sync",
				ArgsUsage: "CONNECTOR [SCOPE]",
				Description: "CONNECTOR is one of " + strings.Join(api.PMConnectors, ", ") +
					". SCOPE is one of " + strings.Join(api.Scopes, ", ") + " (default all).",
				Action: syncRun,
			},
			{
				Name:  "logs",
				Usage: "List sync logs",
				Flags: listFlags("connector"),
				Action: func(c *cli.Context) error {
					rt, err := connect(c)
					if err != nil {
						return err
					}
					opts := listOptions(c, map[string]string{"connector": "connectorType"})
					if v := opts.Filters["connectorType"]; v != "" {
						opts.Filters["connectorType"] = strings.ToUpper(v)
					}
					p, err := api.NewSync(rt.Client).Logs(c.Context, opts)
					if err != nil {
						return err
					}
					return renderPage(rt, p)
				},
			},
		},
	}
}

func syncTest(c *cli.Context) error {
	connector := c.Args().First()
	if connector == "" {
		return fmt.Errorf("connector required")
	}
	rt, err := connect(c)
	if err != nil {
		return err
	}
	result, err := api.NewSync(rt.Client).Test(c.Context, connector)
	if err != nil {
		return err
	}
	return render(rt, result)
}

func syncRun(c *cli.Context) error {
	connector := c.Args().First()
	if connector == "" {
		return fmt.Errorf("connector required")
	}
	scope := c.Args().Get(1)
	if scope == "" {
		scope = api.ScopeAll
	}

	rt, err := connect(c)
	if err != nil {
		return err
	}

	var spin *output.Spinner
	if isTable(rt) {
		spin = output.NewSpinner(rt.errOut, fmt.Sprintf("Syncing %s from %s...", scope, connector))
		spin.Start()
	}

	result, err := api.NewSync(rt.Client).Run(c.Context, connector, scope)
	if spin != nil {
		if err != nil || result.Status == "FAILED" {
			spin.Fail("Sync failed")
		} else {
			spin.Success("Sync finished")
		}
	}
	if err != nil {
		return err
	}
	if err := render(rt, result); err != nil {
		return err
	}
	if result.Status == "FAILED" {
		return fmt.Errorf("sync failed: %s", result.ErrorMessage)
	}
	return nil
}
