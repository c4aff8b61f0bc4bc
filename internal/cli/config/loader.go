package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/signalspoc/signals-cli/internal/infra/confloader"
)

// Load builds the configuration from defaults, the file at path (which may
// be missing), SIGNALS_* environment variables and flags, in rising
// priority. flags holds dotted keys for flags the user set explicitly.
func Load(path string, flags map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	loader := confloader.NewLoader(
		confloader.WithDefaults(defaultMap()),
		confloader.WithOptionalConfigFile(path),
		confloader.WithFlags(flags),
	)

	cfg := &CLIConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	cfg.Store.Dir = ExpandHome(cfg.Store.Dir)
	cfg.TLS.CAFile = ExpandHome(cfg.TLS.CAFile)
	cfg.TLS.CertFile = ExpandHome(cfg.TLS.CertFile)
	cfg.TLS.KeyFile = ExpandHome(cfg.TLS.KeyFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, path)
}

// Set updates a single key in the config file at path. Only the file and
// defaults are consulted, so values from the environment are never
// written back.
func Set(path, key, value string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if !slices.Contains(Keys(), key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}

	loader := confloader.NewLoader(
		confloader.WithoutEnv(),
		confloader.WithDefaults(defaultMap()),
		confloader.WithOptionalConfigFile(path),
		confloader.WithFlags(map[string]any{key: value}),
	)

	cfg := &CLIConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := Save(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
