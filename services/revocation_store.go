package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RevocationStore remembers the IDs of tokens revoked by logout until they
// would have expired anyway
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedKeyPrefix = "revoked:"

// RedisRevocationStore keeps revoked token IDs in Redis with a TTL matching
// the token's remaining lifetime
type RedisRevocationStore struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// NewRedisRevocationStore wraps client in a circuit breaker
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		cb:     config.NewCircuitBreaker("Redis-Revocation"),
	}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return result.(int64) > 0, nil
}

// MemoryRevocationStore is the in-process store used when Redis is not
// configured. Revocations do not survive a restart.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty in-process store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if expiresAt.After(now) {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	return ok && exp.After(s.now()), nil
}

var revocationStore RevocationStore

// InitRevocationStore picks the Redis store when a client is available and
// the in-process store otherwise
func InitRevocationStore(client *redis.Client) RevocationStore {
	if client != nil {
		revocationStore = NewRedisRevocationStore(client)
	} else {
		revocationStore = NewMemoryRevocationStore()
	}
	return revocationStore
}

// GetRevocationStore returns the global revocation store
func GetRevocationStore() RevocationStore {
	if revocationStore == nil {
		revocationStore = NewMemoryRevocationStore()
	}
	return revocationStore
}

// SetRevocationStore sets the global revocation store (primarily for testing)
func SetRevocationStore(store RevocationStore) {
	revocationStore = store
}
