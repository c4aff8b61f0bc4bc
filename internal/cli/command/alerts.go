package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/api"
)

// AlertsCommand returns the alerts subcommand group.
func AlertsCommand() *cli.Command {
	return &cli.Command{
		Name:    "alerts",
		Aliases: []string{"alert"},
		Usage:   "Review status-drift alerts",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List unresolved alerts",
				Flags: append(listFlags(), &cli.BoolFlag{
					Name:  "unread",
					Usage: "Only unread alerts",
				}),
				Action: alertsList,
			},
			{
				Name:   "count",
				Usage:  "Show the number of unread alerts",
				Action: alertsCount,
			},
			{
				Name:      "read",
				Usage:     "Mark an alert as read",
				ArgsUsage: "ALERT_ID",
				Action: alertAction("marked as read", func(c *cli.Context, a *api.Alerts, id int64) error {
					return a.MarkRead(c.Context, id)
				}),
			},
			{
				Name:      "resolve",
				Usage:     "Resolve an alert",
				ArgsUsage: "ALERT_ID",
				Action: alertAction("resolved", func(c *cli.Context, a *api.Alerts, id int64) error {
					return a.Resolve(c.Context, id)
				}),
			},
			{
				Name:      "approve",
				Usage:     "Approve an alert and apply its recommended action",
				ArgsUsage: "ALERT_ID",
				Action:    alertsApprove,
			},
		},
	}
}

func alertsList(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}
	alerts := api.NewAlerts(rt.Client)
	opts := listOptions(c, nil)

	var p *api.Page
	if c.Bool("unread") {
		p, err = alerts.Unread(c.Context, opts)
	} else {
		p, err = alerts.List(c.Context, opts)
	}
	if err != nil {
		return err
	}
	return renderPage(rt, p)
}

func alertsCount(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}
	count, err := api.NewAlerts(rt.Client).UnreadCount(c.Context)
	if err != nil {
		return err
	}
	if isTable(rt) {
		fmt.Fprintf(rt.out, "%d unread alerts\n", count)
		return nil
	}
	return render(rt, map[string]int64{"count": count})
}

func alertAction(done string, fn func(*cli.Context, *api.Alerts, int64) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		id, err := idArg(c, 0, "alert ID")
		if err != nil {
			return err
		}
		rt, err := connect(c)
		if err != nil {
			return err
		}
		if err := fn(c, api.NewAlerts(rt.Client), id); err != nil {
			return err
		}
		fmt.Fprintf(rt.out, "Alert %d %s.\n", id, done)
		return nil
	}
}

func alertsApprove(c *cli.Context) error {
	id, err := idArg(c, 0, "alert ID")
	if err != nil {
		return err
	}
	rt, err := connect(c)
	if err != nil {
		return err
	}
	result, err := api.NewAlerts(rt.Client).Approve(c.Context, id)
	if err != nil {
		return err
	}
	if !isTable(rt) {
		return render(rt, result)
	}
	if !result.Success {
		return fmt.Errorf("alert %d: %s", id, result.Description)
	}
	fmt.Fprintf(rt.out, "Alert %d approved: %s\n", id, result.Description)
	return nil
}
