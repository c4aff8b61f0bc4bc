// Package logger provides structured logging for signals-cli.
//
//   - logger.go: slog-backed Logger, levels and the process default
//   - context.go: Context-carried logger and request ID
//   - redact.go: Masking of credentials before they reach the handler
package logger
