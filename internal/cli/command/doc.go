// Package command provides the CLI command definitions for signals-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: App, global flags, rendering helpers
//   - runtime.go: lazily built dependencies shared by the commands
//   - auth.go: login, logout, whoami, status
//   - resources.go: projects, tasks, users, comments
//   - alerts.go: alerts subcommand group
//   - sync.go: connector sync subcommand group
//   - config.go: local configuration
//   - repl.go: interactive mode
//
// Commands parse flags, call the api collaborators through the shared
// transport and format the result for the selected output.
package command
