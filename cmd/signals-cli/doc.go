// Package main provides the entry point for signals-cli.
//
// signals-cli is the command-line client for the Signals API. It keeps a
// bearer-token session on disk between invocations and covers:
//
//   - Login, logout, whoami and status
//   - Projects, tasks, users and comments
//   - Alerts (list, count, read, resolve, approve)
//   - Connector syncs and sync logs
//   - Local configuration
//
// Usage:
//
//	signals-cli login -u alice
//	signals-cli projects list --status ACTIVE -o json
//	signals-cli repl
package main
