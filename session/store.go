package session

import (
	"context"
	"sync"

	"github.com/philonet/rooms/pkg/errors"
	"github.com/philonet/rooms/pkg/jwt"
)

// User is the authenticated account a session belongs to
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	DisplayPic string `json:"display_pic,omitempty"`
}

// Store provides the session credentials used by the API client.
// Implementations must be safe for concurrent use.
type Store interface {
	// Token returns the current session token. A missing or expired
	// token yields an auth error so callers fail before hitting the network.
	Token(ctx context.Context) (string, error)
	// User returns the signed-in user, or an auth error when signed out
	User(ctx context.Context) (*User, error)
	// SetAuth stores a token and user pair
	SetAuth(ctx context.Context, token string, user *User) error
	// Clear signs the session out
	Clear(ctx context.Context) error
}

// checkToken rejects empty and expired tokens. Tokens that do not parse
// as JWTs pass through untouched; opaque tokens are the backend's problem.
func checkToken(token string) error {
	if token == "" {
		return errors.NewAuthError("no session token")
	}
	if _, err := jwt.Inspect(token); err == jwt.ErrExpiredToken {
		return errors.NewAuthError("session token has expired")
	}
	return nil
}

// MemoryStore keeps the session in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	user  *User
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if err := checkToken(token); err != nil {
		return "", err
	}
	return token, nil
}

func (s *MemoryStore) User(ctx context.Context) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil, errors.NewAuthError("not signed in")
	}
	u := *s.user
	return &u, nil
}

func (s *MemoryStore) SetAuth(ctx context.Context, token string, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	return nil
}
