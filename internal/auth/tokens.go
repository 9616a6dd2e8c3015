package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps issued session tokens until they expire or are revoked
type TokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Lookup returns the user of token and whether it is still valid.
	Lookup(ctx context.Context, token string) (string, bool, error)
	Revoke(ctx context.Context, token string) error
}

// RedisTokenStore keeps tokens in Redis with a native expiry
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore creates a token store under the given key prefix
func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: prefix}
}

// Save implements TokenStore
func (s *RedisTokenStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Lookup implements TokenStore
func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	userID, err := s.client.Get(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up token: %w", err)
	}
	return userID, true, nil
}

// Revoke implements TokenStore
func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.prefix+token).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

type session struct {
	userID  string
	expires time.Time
}

// MemoryTokenStore keeps tokens in process
type MemoryTokenStore struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

// NewMemoryTokenStore creates an empty in-process token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{sessions: make(map[string]session), now: time.Now}
}

// Save implements TokenStore
func (s *MemoryTokenStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

// Lookup implements TokenStore
func (s *MemoryTokenStore) Lookup(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, token)
		return "", false, nil
	}
	return sess.userID, true, nil
}

// Revoke implements TokenStore
func (s *MemoryTokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
