package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys of the persisted session record.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// User is the JSON document persisted under KeyUser.
type User struct {
	Username string `json:"username"`
}

// Snapshot is the persisted session as read back from a Store.
type Snapshot struct {
	Token string
	User  *User
}

// Empty reports whether the snapshot holds no session.
func (s Snapshot) Empty() bool {
	return s.Token == "" || s.User == nil
}

// Record is a typed view over the session keys of a Store.
type Record struct {
	store Store
}

// NewRecord creates a Record backed by store.
func NewRecord(store Store) *Record {
	return &Record{store: store}
}

// Store returns the underlying store.
func (r *Record) Store() Store {
	return r.store
}

// Load reads the persisted session.
//
// A missing key yields an empty field. A malformed user document, or a
// value that cannot be decrypted, is treated as absent and reported through
// malformed, never as an error.
func (r *Record) Load(ctx context.Context) (snap Snapshot, malformed bool, err error) {
	token, err := r.store.Get(ctx, []byte(KeyToken))
	switch {
	case errors.Is(err, ErrKeyNotFound):
	case errors.Is(err, ErrDecrypt):
		malformed = true
	case err != nil:
		return Snapshot{}, false, fmt.Errorf("read %s: %w", KeyToken, err)
	default:
		snap.Token = string(token)
	}

	raw, err := r.store.Get(ctx, []byte(KeyUser))
	switch {
	case errors.Is(err, ErrKeyNotFound):
	case errors.Is(err, ErrDecrypt):
		malformed = true
	case err != nil:
		return Snapshot{}, false, fmt.Errorf("read %s: %w", KeyUser, err)
	default:
		var u *User
		if jerr := json.Unmarshal(raw, &u); jerr != nil || u == nil || u.Username == "" {
			malformed = malformed || jerr != nil
		} else {
			snap.User = u
		}
	}

	return snap, malformed, nil
}

// Save writes token and user in one atomic write.
func (r *Record) Save(ctx context.Context, token string, user User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyUser, err)
	}
	return r.store.SetMany(ctx, map[string][]byte{
		KeyToken: []byte(token),
		KeyUser:  doc,
	})
}

// Clear removes both session keys in one atomic write.
func (r *Record) Clear(ctx context.Context) error {
	return r.store.DeleteMany(ctx, []byte(KeyToken), []byte(KeyUser))
}
