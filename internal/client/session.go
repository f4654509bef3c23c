// ABOUTME: Persisted client session record, the sole signal of logged-in state
// ABOUTME: One opaque TOML file holding the user fields and the current bearer token

package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Session is the single opaque record a logged-in client holds: the user
// fields returned at login plus the bearer token. Its presence on disk is the
// only logged-in signal the client consults.
type Session struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Email       string `toml:"email"`
	PhoneNumber string `toml:"phone_number"`
	Website     string `toml:"website"`
	Token       string `toml:"token"`
}

// SessionStore persists the session record to a file.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store writing to the given path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load reads the current session. Returns (nil, nil) when no session exists.
func (s *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var sess Session
	if err := toml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return &sess, nil
}

// Save writes the session record, creating parent directories as needed.
// The file contains a bearer token, so it is not group or world readable.
func (s *SessionStore) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening session file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(sess); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Clear removes the session record. Clearing an absent session is not an error.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
