package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/api"
)

// listFlags are shared by every paged list command. filters name extra
// string flags passed through as query parameters.
func listFlags(filters ...string) []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page number (0-based)",
		},
		&cli.IntFlag{
			Name:  "size",
			Value: 20,
			Usage: "Page size",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort expression (e.g., name,asc)",
		},
	}
	for _, f := range filters {
		flags = append(flags, &cli.StringFlag{
			Name:  f,
			Usage: "Filter by " + f,
		})
	}
	return flags
}

// listOptions reads the flags registered by listFlags. filters map flag
// names to query parameter names.
func listOptions(c *cli.Context, filters map[string]string) api.ListOptions {
	opts := api.ListOptions{
		Page: c.Int("page"),
		Size: c.Int("size"),
		Sort: c.String("sort"),
	}
	for flag, param := range filters {
		if v := c.String(flag); v != "" {
			if opts.Filters == nil {
				opts.Filters = map[string]string{}
			}
			opts.Filters[param] = v
		}
	}
	return opts
}

// renderPage writes the page content, plus a paging footer for tables.
func renderPage(rt *Runtime, p *api.Page) error {
	if !isTable(rt) {
		return render(rt, p)
	}
	if len(p.Content) == 0 {
		fmt.Fprintln(rt.out, "No results.")
		return nil
	}
	if err := render(rt, p.Content); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "\nPage %d/%d (%d total)\n", p.Number+1, max(p.TotalPages, 1), p.TotalElements)
	return nil
}

var (
	projectFilters = map[string]string{"source": "sourceSystem", "status": "status", "search": "search"}
	taskFilters    = map[string]string{"source": "sourceSystem", "status": "status", "priority": "priority", "project": "projectId", "search": "search"}
)

// ProjectsCommand returns the projects subcommand group.
func ProjectsCommand() *cli.Command {
	return &cli.Command{
		Name:    "projects",
		Aliases: []string{"project"},
		Usage:   "Browse projects",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List projects",
				Flags: listFlags("source", "status", "search"),
				Action: func(c *cli.Context) error {
					rt, err := connect(c)
					if err != nil {
						return err
					}
					p, err := api.NewResources(rt.Client).Projects(c.Context, listOptions(c, projectFilters))
					if err != nil {
						return err
					}
					return renderPage(rt, p)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a project",
				ArgsUsage: "PROJECT_ID",
				Action: func(c *cli.Context) error {
					id, err := idArg(c, 0, "project ID")
					if err != nil {
						return err
					}
					rt, err := connect(c)
					if err != nil {
						return err
					}
					item, err := api.NewResources(rt.Client).Project(c.Context, id)
					if err != nil {
						return err
					}
					return render(rt, item)
				},
			},
			{
				Name:      "tasks",
				Usage:     "List the tasks of a project",
				ArgsUsage: "PROJECT_ID",
				Flags:     listFlags(),
				Action: func(c *cli.Context) error {
					id, err := idArg(c, 0, "project ID")
					if err != nil {
						return err
					}
					rt, err := connect(c)
					if err != nil {
						return err
					}
					p, err := api.NewResources(rt.Client).TasksByProject(c.Context, id, listOptions(c, nil))
					if err != nil {
						return err
					}
					return renderPage(rt, p)
				},
			},
		},
	}
}

// TasksCommand returns the tasks subcommand group.
func TasksCommand() *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"task"},
		Usage:   "Browse tasks",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: listFlags("source", "status", "priority", "project", "search"),
				Action: func(c *cli.Context) error {
					rt, err := connect(c)
					if err != nil {
						return err
					}
					p, err := api.NewResources(rt.Client).Tasks(c.Context, listOptions(c, taskFilters))
					if err != nil {
						return err
					}
					return renderPage(rt, p)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a task",
				ArgsUsage: "TASK_ID",
				Action: func(c *cli.Context) error {
					id, err := idArg(c, 0, "task ID")
					if err != nil {
						return err
					}
					rt, err := connect(c)
					if err != nil {
						return err
					}
					item, err := api.NewResources(rt.Client).Task(c.Context, id)
					if err != nil {
						return err
					}
					return render(rt, item)
				},
			},
		},
	}
}

// UsersCommand returns the users subcommand group.
func UsersCommand() *cli.Command {
	return &cli.Command{
		Name:    "users",
		Aliases: []string{"user"},
		Usage:   "Browse users",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users",
				Flags: listFlags(),
				Action: func(c *cli.Context) error {
					rt, err := connect(c)
					if err != nil {
						return err
					}
					p, err := api.NewResources(rt.Client).Users(c.Context, listOptions(c, nil))
					if err != nil {
						return err
					}
					return renderPage(rt, p)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a user",
				ArgsUsage: "USER_ID",
				Action: func(c *cli.Context) error {
					id, err := idArg(c, 0, "user ID")
					if err != nil {
						return err
					}
					rt, err := connect(c)
					if err != nil {
						return err
					}
					item, err := api.NewResources(rt.Client).User(c.Context, id)
					if err != nil {
						return err
					}
					return render(rt, item)
				},
			},
		},
	}
}

// CommentsCommand returns the comments subcommand group.
func CommentsCommand() *cli.Command {
	return &cli.Command{
		Name:    "comments",
		Aliases: []string{"comment"},
		Usage:   "Browse comments",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List comments, optionally of one task",
				Flags: append(listFlags(), &cli.Int64Flag{
					Name:  "task",
					Usage: "Only comments of this task ID",
				}),
				Action: func(c *cli.Context) error {
					rt, err := connect(c)
					if err != nil {
						return err
					}
					res := api.NewResources(rt.Client)
					opts := listOptions(c, nil)

					var p *api.Page
					if task := c.Int64("task"); task > 0 {
						p, err = res.CommentsByTask(c.Context, task, opts)
					} else {
						p, err = res.Comments(c.Context, opts)
					}
					if err != nil {
						return err
					}
					return renderPage(rt, p)
				},
			},
		},
	}
}
