package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-api-verification/internal/config"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 1500 * time.Millisecond

// NewClient connects to a single instance or a cluster depending on cfg.Type.
func NewClient(ctx context.Context, cfg config.Redis) (redis.UniversalClient, error) {
	var client redis.UniversalClient
	switch cfg.Type {
	case config.RedisTypeSingle:
		client = redis.NewClient(&redis.Options{
			Addr:            cfg.Address,
			Password:        cfg.Password,
			DB:              cfg.DB,
			PoolSize:        cfg.PoolSize,
			ConnMaxIdleTime: 170 * time.Second,
			DialTimeout:     time.Second,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
		})
	case config.RedisTypeCluster:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           cfg.ClusterAddresses,
			Password:        cfg.Password,
			PoolSize:        cfg.PoolSize,
			ConnMaxLifetime: 15 * time.Minute,
			DialTimeout:     time.Second,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
		})
	default:
		return nil, fmt.Errorf("wrong redis type %q", cfg.Type)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
