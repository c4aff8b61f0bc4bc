package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealing errors.
var (
	ErrPassphraseTooWeak = errors.New("storage: passphrase too weak (minimum 8 characters)")
	ErrDecrypt           = errors.New("storage: decryption failed - wrong passphrase or corrupted data")
)

// Cipher algorithms accepted by SealConfig.
const (
	AlgorithmAESGCM   = "aes-gcm"
	AlgorithmChaCha20 = "chacha20-poly1305"
)

const (
	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the salt length used for key derivation.
	SaltLength = 16

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32

	sealInfo = "signals-cli session store v1"
)

// saltKey holds the key-derivation salt in the wrapped store. It is not secret.
var saltKey = []byte("_salt")

// SealConfig configures at-rest sealing.
type SealConfig struct {
	// Passphrase derives the sealing key with Argon2id.
	Passphrase []byte

	// Algorithm is "aes-gcm" (default) or "chacha20-poly1305".
	Algorithm string
}

// SealedStore encrypts every value before handing it to the wrapped store.
// The key name is bound as additional data, so a value copied under another
// key fails to open.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealedStore wraps inner. The salt is read from inner, or generated and
// persisted on first use.
func NewSealedStore(ctx context.Context, inner Store, cfg SealConfig) (*SealedStore, error) {
	if len(cfg.Passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooWeak
	}

	salt, err := inner.Get(ctx, saltKey)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("storage: generate salt: %w", err)
		}
		if err := inner.Set(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("storage: persist salt: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("storage: read salt: %w", err)
	}

	key, err := deriveKey(cfg.Passphrase, salt)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(cfg.Algorithm, key)
	zeroKey(key)
	if err != nil {
		return nil, err
	}

	return &SealedStore{inner: inner, aead: aead}, nil
}

// Get opens the value stored under key.
func (s *SealedStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(key, sealed)
}

// Set seals value and stores it under key.
func (s *SealedStore) Set(ctx context.Context, key, value []byte) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

// Delete removes key from the wrapped store.
func (s *SealedStore) Delete(ctx context.Context, key []byte) error {
	return s.inner.Delete(ctx, key)
}

// SetMany seals every entry and writes them atomically.
func (s *SealedStore) SetMany(ctx context.Context, entries map[string][]byte) error {
	sealed := make(map[string][]byte, len(entries))
	for k, v := range entries {
		out, err := s.seal([]byte(k), v)
		if err != nil {
			return err
		}
		sealed[k] = out
	}
	return s.inner.SetMany(ctx, sealed)
}

// DeleteMany removes keys from the wrapped store.
func (s *SealedStore) DeleteMany(ctx context.Context, keys ...[]byte) error {
	return s.inner.DeleteMany(ctx, keys...)
}

// Close closes the wrapped store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}

func (s *SealedStore) seal(key, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("storage: nonce: %w", err)
	}
	// nonce || ciphertext
	return s.aead.Seal(nonce, nonce, plaintext, key), nil
}

func (s *SealedStore) open(key, sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrDecrypt
	}
	out, err := s.aead.Open(nil, sealed[:n], sealed[n:], key)
	if err != nil {
		return nil, ErrDecrypt
	}
	return out, nil
}

// deriveKey stretches the passphrase with Argon2id, then derives the
// sealing subkey with HKDF so the stretched master never touches data.
func deriveKey(passphrase, salt []byte) ([]byte, error) {
	master := argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	defer zeroKey(master)

	reader := hkdf.New(sha256.New, master, salt, []byte(sealInfo))
	key := make([]byte, argon2KeyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("storage: derive key: %w", err)
	}
	return key, nil
}

func newAEAD(algorithm string, key []byte) (cipher.AEAD, error) {
	switch algorithm {
	case "", AlgorithmAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case AlgorithmChaCha20:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("storage: unsupported algorithm: %s", algorithm)
	}
}

func zeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
