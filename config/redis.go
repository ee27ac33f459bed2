package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to cfg.RedisAddr. It returns nil when Redis is not
// configured or not reachable; callers fall back to in-process token revocation.
func NewRedisClient(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		Warnf("Redis at %s is unreachable, token revocation stays in memory: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return nil
	}

	Infof("Connected to Redis at %s", cfg.RedisAddr)
	return client
}
