package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// CLIConfig is the configuration for signals-cli.
type CLIConfig struct {
	// Server is the API base URL, including the /api/v1 prefix.
	Server  string        `koanf:"server" yaml:"server"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// RPS caps outgoing requests per second. Zero disables the limit.
	RPS    float64 `koanf:"rps" yaml:"rps"`
	Output string  `koanf:"output" yaml:"output"` // table, json, yaml

	TLS     TLSConfig     `koanf:"tls" yaml:"tls"`
	Store   StoreConfig   `koanf:"store" yaml:"store"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`
}

// TLSConfig configures HTTPS connections to the server.
type TLSConfig struct {
	// CAFile adds a PEM bundle to the system roots.
	CAFile   string `koanf:"cafile" yaml:"cafile,omitempty"`
	CertFile string `koanf:"certfile" yaml:"certfile,omitempty"`
	KeyFile  string `koanf:"keyfile" yaml:"keyfile,omitempty"`
	Insecure bool   `koanf:"insecure" yaml:"insecure,omitempty"`
}

// StoreConfig selects where the session is persisted.
type StoreConfig struct {
	Backend string `koanf:"backend" yaml:"backend"` // badger, memory
	Dir     string `koanf:"dir" yaml:"dir"`
	// Passphrase seals stored values when set.
	Passphrase string `koanf:"passphrase" yaml:"passphrase,omitempty"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile receives the Prometheus text exposition when the process exits.
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty"`
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Default returns the default configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "http://localhost:8080/api/v1",
		Timeout: 30 * time.Second,
		Output:  OutputTable,
		Store: StoreConfig{
			Backend: "badger",
			Dir:     filepath.Join(homeDir(), ".signals", "session"),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".signals", "cli.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// defaultMap flattens Default into dotted keys for the loader.
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"server":           d.Server,
		"timeout":          d.Timeout.String(),
		"rps":              d.RPS,
		"output":           d.Output,
		"tls.cafile":       d.TLS.CAFile,
		"tls.certfile":     d.TLS.CertFile,
		"tls.keyfile":      d.TLS.KeyFile,
		"tls.insecure":     d.TLS.Insecure,
		"store.backend":    d.Store.Backend,
		"store.dir":        d.Store.Dir,
		"store.passphrase": d.Store.Passphrase,
		"log.level":        d.Log.Level,
		"log.format":       d.Log.Format,
		"metrics.textfile": d.Metrics.Textfile,
	}
}

// Keys lists the configuration keys accepted by Set.
func Keys() []string {
	return []string{
		"server", "timeout", "rps", "output",
		"tls.cafile", "tls.certfile", "tls.keyfile", "tls.insecure",
		"store.backend", "store.dir", "store.passphrase",
		"log.level", "log.format",
		"metrics.textfile",
	}
}

// Validate checks the configuration.
func (c *CLIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Output, validation.Required, validation.In(OutputTable, OutputJSON, OutputYAML)),
		validation.Field(&c.TLS),
		validation.Field(&c.Store),
		validation.Field(&c.Log),
	)
}

// Validate checks the tls section.
func (t TLSConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.CertFile, validation.By(func(any) error {
			if t.CertFile == "" && t.KeyFile != "" {
				return errors.New("is required with tls.keyfile")
			}
			return nil
		})),
		validation.Field(&t.KeyFile, validation.By(func(any) error {
			if t.KeyFile == "" && t.CertFile != "" {
				return errors.New("is required with tls.certfile")
			}
			return nil
		})),
	)
}

// Validate checks the store section.
func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Backend, validation.Required, validation.In("badger", "memory")),
		validation.Field(&s.Dir, validation.By(func(value any) error {
			if s.Backend == "badger" && s.Dir == "" {
				return errors.New("is required for the badger backend")
			}
			return nil
		})),
		validation.Field(&s.Passphrase, validation.Length(8, 0)),
	)
}

// Validate checks the log section.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// Redacted returns a copy with secrets masked, for display.
func (c *CLIConfig) Redacted() *CLIConfig {
	cp := *c
	if cp.Store.Passphrase != "" {
		cp.Store.Passphrase = "***REDACTED***"
	}
	return &cp
}
