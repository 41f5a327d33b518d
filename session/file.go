package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/philonet/rooms/pkg/errors"
)

// fileState is the on-disk representation of a session
type fileState struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// FileStore persists the session as a JSON file readable only by the owner
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a session store backed by the given file path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	state, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	if err := checkToken(state.Token); err != nil {
		return "", err
	}
	return state.Token, nil
}

func (s *FileStore) User(ctx context.Context) (*User, error) {
	s.mu.Lock()
	state, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if state.User == nil {
		return nil, errors.NewAuthError("not signed in")
	}
	u := *state.User
	return &u, nil
}

func (s *FileStore) SetAuth(ctx context.Context, token string, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(fileState{Token: token, User: user})
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (fileState, error) {
	var state fileState

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state, errors.NewAuthError("no session token")
	}
	if err != nil {
		return state, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("corrupt session file %s: %w", s.path, err)
	}
	return state, nil
}

func (s *FileStore) write(state fileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	// Write-then-rename so a crash never leaves a half-written session
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
