package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing scalar key.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable reports a transport-level store failure. Callers treat
	// anything wrapping it as a storage error rather than bad input.
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the durable key-value/list contract every component depends on.
// There are no transactions; callers compose read-then-write themselves.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LSet(ctx context.Context, key string, index int64, value string) error
	Ping(ctx context.Context) error
	Close() error
}
