package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
)

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Store defines the key-value operations the session layer needs.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// SetMany stores all pairs in a single atomic write.
	SetMany(ctx context.Context, entries map[string][]byte) error

	// DeleteMany removes all keys in a single atomic write.
	DeleteMany(ctx context.Context, keys ...[]byte) error

	// Close releases the underlying resources.
	Close() error
}

// Config configures the persistent session store.
type Config struct {
	// Backend selects the implementation ("badger" or "memory").
	Backend string

	// Dir is the storage directory (badger only).
	Dir string

	// Passphrase enables at-rest sealing of values when non-empty.
	Passphrase string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// ValueLogFileSize is the max value log file size in bytes.
	// Session records are tiny, so this stays small.
	// Default: 16MB
	ValueLogFileSize int64

	// MemTableSize is the memtable size in bytes.
	// Default: 8MB
	MemTableSize int64

	// SyncWrites fsyncs after each write.
	// Default: true (a login must survive a crash right after it returns)
	SyncWrites bool
}

// DefaultConfig returns the default store configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Backend: BackendBadger,
		Dir:     dir,
		Badger:  DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		ValueLogFileSize: 16 << 20,
		MemTableSize:     8 << 20,
		SyncWrites:       true,
	}
}

// Open creates the store described by cfg.
// When cfg.Passphrase is set, the backend is wrapped in a SealedStore.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		backend Store
		err     error
	)
	switch cfg.Backend {
	case "", BackendBadger:
		backend, err = NewBadgerStore(cfg, logger)
	case BackendMemory:
		backend = NewMemoryStore()
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Passphrase == "" {
		return backend, nil
	}

	sealed, err := NewSealedStore(ctx, backend, SealConfig{Passphrase: []byte(cfg.Passphrase)})
	if err != nil {
		backend.Close()
		return nil, err
	}
	return sealed, nil
}
