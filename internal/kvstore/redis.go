package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a redis client.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", opErr("get", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return opErr("set", key, err)
	}
	return nil
}

func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, opErr("lrange", key, err)
	}
	return vals, nil
}

func (s *RedisStore) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	if err := s.client.RPush(ctx, key, args...).Err(); err != nil {
		return opErr("rpush", key, err)
	}
	return nil
}

func (s *RedisStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		return opErr("ltrim", key, err)
	}
	return nil
}

func (s *RedisStore) LSet(ctx context.Context, key string, index int64, value string) error {
	if err := s.client.LSet(ctx, key, index, value).Err(); err != nil {
		return opErr("lset", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return opErr("ping", "", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// opErr wraps a transport failure so callers can match ErrUnavailable while
// keeping the redis error text for logs.
func opErr(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w: %v", op, key, ErrUnavailable, err)
}
