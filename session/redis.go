package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/philonet/rooms/pkg/errors"
)

// RedisStore keeps the session in Redis so multiple processes share one sign-in
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a session store on the given Redis client.
// A zero ttl means entries never expire on the Redis side; token expiry
// is still enforced on read.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "rooms:session"
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	state, err := s.read(ctx)
	if err != nil {
		return "", err
	}

	if err := checkToken(state.Token); err != nil {
		return "", err
	}
	return state.Token, nil
}

func (s *RedisStore) User(ctx context.Context) (*User, error) {
	state, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	if state.User == nil {
		return nil, errors.NewAuthError("not signed in")
	}
	u := *state.User
	return &u, nil
}

func (s *RedisStore) SetAuth(ctx context.Context, token string, user *User) error {
	data, err := json.Marshal(fileState{Token: token, User: user})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) read(ctx context.Context) (fileState, error) {
	var state fileState

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return state, errors.NewAuthError("no session token")
	}
	if err != nil {
		return state, fmt.Errorf("failed to read session: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("corrupt session entry %s: %w", s.key, err)
	}
	return state, nil
}
