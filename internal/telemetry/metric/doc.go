// Package metric provides Prometheus metrics for signals-cli.
//
//   - prometheus.go: Client metrics registry and textfile export
//   - collector.go: Collector reporting live session state
//
// A CLI process is short-lived, so nothing is served over HTTP; the
// registry is written in text exposition format when metrics.textfile is
// configured (suitable for node_exporter's textfile collector).
package metric
