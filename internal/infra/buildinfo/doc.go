// Package buildinfo exposes the version of signals-cli.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/signalspoc/signals-cli/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
