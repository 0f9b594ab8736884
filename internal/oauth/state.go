package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth_state:"

// ErrStateInvalid means the callback presented a state nonce that was never
// issued, already consumed, or expired.
var ErrStateInvalid = errors.New("oauth state invalid or expired")

// StateStore issues and consumes single-use OAuth state nonces backed by
// Redis with a TTL. A nonce can be consumed exactly once.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore builds a store.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{client: client, ttl: ttl}
}

// Issue creates a nonce and records it with the configured TTL.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	nonce := uuid.NewString()
	if err := s.client.Set(ctx, statePrefix+nonce, "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume validates and deletes the nonce in one round trip.
func (s *StateStore) Consume(ctx context.Context, nonce string) error {
	if nonce == "" {
		return ErrStateInvalid
	}
	val, err := s.client.GetDel(ctx, statePrefix+nonce).Result()
	if errors.Is(err, redis.Nil) || val == "" {
		return ErrStateInvalid
	}
	return err
}
