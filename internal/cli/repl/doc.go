// Package repl provides the interactive mode of signals-cli.
//
//   - repl.go: Read loop, built-ins and the login view
//   - completer.go: Command completion ("<prefix>?" lists matches)
//   - history.go: Command history persisted under ~/.signals/history
//
// The REPL watches the navigation router. When the session is invalidated
// the router moves to the login route and the next prompt becomes the
// login view.
package repl
