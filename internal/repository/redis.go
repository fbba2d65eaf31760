package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore tracks revoked session token ids until they would have expired anyway.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdempotencyStore maps a client-supplied checkout key to the order it created.
type IdempotencyStore interface {
	// Reserve claims key. When the key is already claimed it returns the order
	// id stored for it (uuid.Nil while the first request is still running).
	Reserve(ctx context.Context, key string, ttl time.Duration) (existing uuid.UUID, reserved bool, err error)
	Complete(ctx context.Context, key string, orderID uuid.UUID, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const (
	revokedPrefix     = "session_revoked:"
	idempotencyPrefix = "checkout_idem:"
	idempotencyMarker = "in-flight"
)

type redisSessionStore struct{ client *redis.Client }

func NewSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check session revocation: %w", err)
	}
	return n > 0, nil
}

type redisIdempotencyStore struct{ client *redis.Client }

func NewIdempotencyStore(client *redis.Client) IdempotencyStore {
	return &redisIdempotencyStore{client: client}
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (uuid.UUID, bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyPrefix+key, idempotencyMarker, ttl).Result()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return uuid.Nil, true, nil
	}

	val, err := s.client.Get(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == idempotencyMarker {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("parse idempotency value: %w", err)
	}
	return id, false, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key string, orderID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, idempotencyPrefix+key, orderID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
