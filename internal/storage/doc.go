// Package storage provides the persistent session store for signals-cli.
//
// The store is a small key-value layer that survives process restarts and
// holds the current bearer token and user identity:
//
//   - kv.go: Store interface and backend selection
//   - badger.go: Badger v3 backed durable store
//   - memory.go: In-memory store for tests and ephemeral sessions
//   - sealed.go: AEAD wrapper encrypting values at rest
//   - record.go: Typed view over the "token" and "user" keys
//
// Multi-key writes go through SetMany/DeleteMany so a reader never observes
// a token without its user record (or the reverse).
package storage
