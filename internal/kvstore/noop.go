package kvstore

import (
	"context"
	"time"
)

// NoopStore degrades gracefully when redis is unreachable: writes succeed
// trivially and reads return empty. Memory and tracking features are lost but
// no request crashes.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (*NoopStore) Get(context.Context, string) (string, error) { return "", ErrNotFound }

func (*NoopStore) Set(context.Context, string, string, time.Duration) error { return nil }

func (*NoopStore) LRange(context.Context, string, int64, int64) ([]string, error) {
	return nil, nil
}

func (*NoopStore) RPush(context.Context, string, ...string) error { return nil }

func (*NoopStore) LTrim(context.Context, string, int64, int64) error { return nil }

func (*NoopStore) LSet(context.Context, string, int64, string) error { return nil }

func (*NoopStore) Ping(context.Context) error { return nil }

func (*NoopStore) Close() error { return nil }
