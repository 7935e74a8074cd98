package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// StorageName is the fixed key the session is persisted under.
const StorageName = "gidroatlas_auth"

// Store persists a single Session as JSON in dir.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. The directory is created on Save.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		path:   filepath.Join(dir, StorageName+".json"),
		logger: logger,
	}
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Load reads the persisted session. A missing record yields an empty
// session; a corrupt record is logged and also yields an empty session.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("failed to parse stored session, ignoring", "path", s.path, "error", err)
		return Session{}, nil
	}
	return sess, nil
}

// Save replaces the persisted session.
func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing an absent session is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
