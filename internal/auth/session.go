package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// SessionStore persists the session token between process runs.
type SessionStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileSessionStore keeps the token in a single file readable only by the owner.
type FileSessionStore struct {
	Path string
}

// Load returns the stored token, or "" when there is none.
func (f *FileSessionStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token, creating the parent directory if needed.
func (f *FileSessionStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token), 0o600)
}

// Clear removes the stored token.
func (f *FileSessionStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
