package kvstore

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open connects to redis when a URL is configured and reachable, otherwise
// falls back to the no-op store so the service starts degraded instead of
// crashing.
func Open(ctx context.Context, redisURL string) Store {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		log.Printf("kvstore: REDIS_URL not set, using no-op store")
		return NewNoopStore()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("kvstore: invalid REDIS_URL (%v), using no-op store", err)
		return NewNoopStore()
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("kvstore: redis unreachable (%v), using no-op store", err)
		_ = client.Close()
		return NewNoopStore()
	}

	return NewRedisStore(client)
}
