package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/philonet/rooms/pkg/config"
)

// NewClient builds a go-redis client from the Redis config section and
// verifies connectivity before handing it out.
func NewClient(ctx context.Context) (*redis.Client, error) {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
