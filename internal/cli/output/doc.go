// Package output renders command results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Column tables for records, key/value tables for single objects
//   - json.go, yaml.go: Machine-readable output
//   - spinner.go: Progress animation for long-running calls such as syncs
//
// YAML output uses the same field names as JSON output.
package output
