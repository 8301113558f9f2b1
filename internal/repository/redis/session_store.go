package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/repository"
)

// SessionStore implements port.SessionStore backed by Redis. Each session
// identifier maps to exactly one serialized principal; expiry is enforced
// with a TTL refreshed on every write.
type SessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewSessionStore constructs a Redis-backed session store.
func NewSessionStore(client *redis.Client, keyPrefix string, ttl time.Duration) *SessionStore {
	if keyPrefix == "" {
		keyPrefix = "userLoginState:"
	}
	return &SessionStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *SessionStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Get returns the stored principal or repository.ErrNotFound when the
// session carries no login state.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Principal, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var principal domain.Principal
	if err := json.Unmarshal(raw, &principal); err != nil {
		return nil, fmt.Errorf("decode session principal: %w", err)
	}

	return &principal, nil
}

// Set stores the principal under the session key, refreshing the TTL.
func (s *SessionStore) Set(ctx context.Context, sessionID string, principal domain.Principal) error {
	raw, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("encode session principal: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Remove clears the login state for the session.
func (s *SessionStore) Remove(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
