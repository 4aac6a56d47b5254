package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ent0n29/evafx/internal/kvstore"
	"github.com/ent0n29/evafx/internal/memory"
)

const subscribersKey = "broadcast:subscribers"

// Subscriptions is the durable daily-broadcast recipient list. The list is
// stored as one JSON array so membership survives restarts.
type Subscriptions struct {
	kv kvstore.Store
}

func NewSubscriptions(kv kvstore.Store) *Subscriptions {
	return &Subscriptions{kv: kv}
}

// Subscribe adds owner to the broadcast list. Re-subscribing is a no-op.
func (s *Subscriptions) Subscribe(ctx context.Context, owner string) error {
	owner = memory.NormalizeOwner(owner)
	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == owner {
			return nil
		}
	}
	return s.save(ctx, append(list, owner))
}

// Unsubscribe removes owner from the broadcast list. Unknown owners are a
// no-op.
func (s *Subscriptions) Unsubscribe(ctx context.Context, owner string) error {
	owner = memory.NormalizeOwner(owner)
	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, existing := range list {
		if existing != owner {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return s.save(ctx, kept)
}

// List returns the current recipients in subscription order.
func (s *Subscriptions) List(ctx context.Context) ([]string, error) {
	return s.load(ctx)
}

func (s *Subscriptions) load(ctx context.Context) ([]string, error) {
	raw, err := s.kv.Get(ctx, subscribersKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode subscribers: %w", err)
	}
	return list, nil
}

func (s *Subscriptions) save(ctx context.Context, list []string) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode subscribers: %w", err)
	}
	if err := s.kv.Set(ctx, subscribersKey, string(data), 0); err != nil {
		return fmt.Errorf("save subscribers: %w", err)
	}
	return nil
}
