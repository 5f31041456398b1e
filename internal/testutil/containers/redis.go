package containers

import (
	"context"
	"fmt"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps the testcontainers redis module with the connection
// URL already resolved.
type RedisContainer struct {
	*tcredis.RedisContainer
	URL string
}

// NewRedisContainer starts a throwaway Redis instance for a test. The URL is
// in redis:// form, ready for redis.ParseURL.
func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	url, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &RedisContainer{
		RedisContainer: redisContainer,
		URL:            url,
	}, nil
}
