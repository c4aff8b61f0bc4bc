// Package config defines the signals-cli configuration (~/.signals/cli.yaml).
//
//   - config.go: CLIConfig, defaults and validation
//   - loader.go: Loading through confloader, saving and key updates
package config
