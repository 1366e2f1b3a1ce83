// Package wallet adapts the signing key, chain client, and session state into
// the connect/sign/call surface the rest of the desk uses.
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// SessionStore persists the wallet session between process restarts so a
// restart does not force a reconnect.
type SessionStore interface {
	Load() (domain.WalletSession, bool, error)
	Save(session domain.WalletSession) error
	Clear() error
}

// FileSessionStore keeps the session in a single JSON file.
type FileSessionStore struct {
	path string
}

var _ SessionStore = (*FileSessionStore)(nil)

// NewFileSessionStore creates a store writing to path. Parent directories are
// created on first Save.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Load reads the persisted session. The second return value is false when no
// session file exists.
func (s *FileSessionStore) Load() (domain.WalletSession, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.WalletSession{}, false, nil
	}
	if err != nil {
		return domain.WalletSession{}, false, fmt.Errorf("wallet: read session file: %w", err)
	}

	var session domain.WalletSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.WalletSession{}, false, fmt.Errorf("wallet: parse session file: %w", err)
	}
	if session.Address == "" {
		return domain.WalletSession{}, false, nil
	}
	return session, true, nil
}

// Save writes the session atomically (write temp file, then rename).
func (s *FileSessionStore) Save(session domain.WalletSession) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("wallet: create session dir: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("wallet: marshal session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("wallet: write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("wallet: rename session file: %w", err)
	}
	return nil
}

// Clear removes the session file. Missing files are not an error.
func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("wallet: remove session file: %w", err)
	}
	return nil
}
