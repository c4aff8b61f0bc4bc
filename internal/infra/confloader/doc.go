// Package confloader layers configuration sources on top of koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults (a flat map of dotted keys)
//  2. The YAML configuration file
//  3. Environment variables with the SIGNALS_ prefix
//  4. Command-line flags (a flat map of dotted keys)
//
// Watcher reports changes to the configuration file so long-running
// commands can re-apply settings such as the log level.
package confloader
