package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	revoked, err := store.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "token-1", time.Now().Add(time.Minute)))
	revoked, err = store.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens are not worth remembering
	require.NoError(t, store.Revoke(ctx, "token-2", time.Now().Add(-time.Minute)))
	revoked, _ = store.IsRevoked(ctx, "token-2")
	assert.False(t, revoked)
}

func TestMemoryRevocationStoreForgetsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	start := time.Now()
	store.now = func() time.Time { return start }

	require.NoError(t, store.Revoke(ctx, "short", start.Add(time.Minute)))

	store.now = func() time.Time { return start.Add(2 * time.Minute) }
	revoked, _ := store.IsRevoked(ctx, "short")
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "long", start.Add(time.Hour)))
	assert.NotContains(t, store.revoked, "short")
	assert.Contains(t, store.revoked, "long")
}

func TestRedisRevocationStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewRedisRevocationStore(client)
	ctx := context.Background()

	assert.Error(t, store.Revoke(ctx, "token", time.Now().Add(time.Minute)))

	revoked, err := store.IsRevoked(ctx, "token")
	assert.Error(t, err)
	assert.False(t, revoked)

	// expired tokens never reach Redis
	assert.NoError(t, store.Revoke(ctx, "old", time.Now().Add(-time.Second)))
}

func TestInitRevocationStore(t *testing.T) {
	original := revocationStore
	defer SetRevocationStore(original)

	store := InitRevocationStore(nil)
	assert.IsType(t, &MemoryRevocationStore{}, store)
	assert.Same(t, store, GetRevocationStore())

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	assert.IsType(t, &RedisRevocationStore{}, InitRevocationStore(client))
}
