package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/evafx/internal/kvstore"
)

var (
	// ErrInvalidCategory reports a category outside the fixed enumeration.
	ErrInvalidCategory = errors.New("invalid memory category")
)

// Options bounds the per-owner retention windows.
type Options struct {
	LedgerCap  int           // max records per owner ledger
	IndexCap   int           // max ids per (owner, category) index
	HistoryCap int           // max conversation turns kept per owner
	HistoryTTL time.Duration // conversation key expiry
}

func (o Options) withDefaults() Options {
	if o.LedgerCap <= 0 {
		o.LedgerCap = 100
	}
	if o.IndexCap <= 0 {
		o.IndexCap = 50
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = 20
	}
	if o.HistoryTTL <= 0 {
		o.HistoryTTL = 7 * 24 * time.Hour
	}
	return o
}

// Store keeps each owner's long-term records in an append-only ledger with a
// per-category secondary index, plus a capped conversation history.
//
// Writes are unsynchronized read-modify-write sequences against the shared
// store: two concurrent requests for the same owner can lose updates or
// interleave trims. A single user rarely messages concurrently, so this
// limitation is accepted rather than serialized per owner.
type Store struct {
	kv   kvstore.Store
	opts Options
}

func New(kv kvstore.Store, opts Options) *Store {
	return &Store{kv: kv, opts: opts.withDefaults()}
}

func ledgerKey(owner string) string { return "long_term_memory:" + owner }

func indexKey(owner string, category Category) string {
	return "memory_by_type:" + owner + ":" + string(category)
}

func historyKey(owner string) string { return "conversation:" + owner }

// Save appends a new record to the owner's ledger and category index, trimming
// both to their caps (oldest evicted first). Returns the new record id.
func (s *Store) Save(ctx context.Context, owner string, category Category, content any) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	owner = NormalizeOwner(owner)

	payload, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal content: %w", err)
	}

	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Owner:     owner,
		Category:  category,
		Content:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	key := ledgerKey(owner)
	if err := s.kv.RPush(ctx, key, string(encoded)); err != nil {
		return "", fmt.Errorf("append ledger: %w", err)
	}
	if err := s.kv.LTrim(ctx, key, int64(-s.opts.LedgerCap), -1); err != nil {
		return "", fmt.Errorf("trim ledger: %w", err)
	}

	idxKey := indexKey(owner, category)
	if err := s.kv.RPush(ctx, idxKey, rec.ID); err != nil {
		return "", fmt.Errorf("append index: %w", err)
	}
	if err := s.kv.LTrim(ctx, idxKey, int64(-s.opts.IndexCap), -1); err != nil {
		return "", fmt.Errorf("trim index: %w", err)
	}

	return rec.ID, nil
}

// Retrieve returns up to limit records for the owner, newest window first in
// ledger order. With a category it resolves ids through the index before
// scanning the ledger; without one it scans the most recent 2*limit entries.
// since > 0 keeps only records created within that window. An unknown category
// yields an empty result, not an error. Records whose JSON fails to decode
// are skipped.
func (s *Store) Retrieve(ctx context.Context, owner string, category Category, limit int, since time.Duration) ([]Record, error) {
	owner = NormalizeOwner(owner)
	if limit <= 0 {
		limit = 10
	}

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().UTC().Add(-since)
	}

	if category != "" {
		if !category.Valid() {
			log.Printf("memory: invalid category requested: %q", category)
			return nil, nil
		}
		ids, err := s.kv.LRange(ctx, indexKey(owner, category), int64(-limit), -1)
		if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}

		entries, err := s.kv.LRange(ctx, ledgerKey(owner), 0, -1)
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		return collect(entries, limit, cutoff, wanted), nil
	}

	entries, err := s.kv.LRange(ctx, ledgerKey(owner), int64(-2*limit), -1)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return collect(entries, limit, cutoff, nil), nil
}

func collect(entries []string, limit int, cutoff time.Time, wanted map[string]bool) []Record {
	var out []Record
	for _, raw := range entries {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			// A corrupt entry must not fail the whole read.
			continue
		}
		if wanted != nil && !wanted[rec.ID] {
			continue
		}
		if !cutoff.IsZero() && rec.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Update replaces the content of an existing record in place and bumps its
// UpdatedAt. Returns false when the id is not present; absence is a valid
// outcome, not an error.
func (s *Store) Update(ctx context.Context, owner, id string, content any) (bool, error) {
	owner = NormalizeOwner(owner)

	payload, err := json.Marshal(content)
	if err != nil {
		return false, fmt.Errorf("marshal content: %w", err)
	}

	key := ledgerKey(owner)
	entries, err := s.kv.LRange(ctx, key, 0, -1)
	if err != nil {
		return false, fmt.Errorf("read ledger: %w", err)
	}

	for i, raw := range entries {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if rec.ID != id {
			continue
		}
		rec.Content = payload
		rec.UpdatedAt = time.Now().UTC()
		encoded, err := json.Marshal(rec)
		if err != nil {
			return false, fmt.Errorf("marshal record: %w", err)
		}
		if err := s.kv.LSet(ctx, key, int64(i), string(encoded)); err != nil {
			return false, fmt.Errorf("replace record: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// History returns the owner's conversation turns, oldest first. A missing or
// unreadable key starts a fresh conversation.
func (s *Store) History(ctx context.Context, owner string) ([]Turn, error) {
	owner = NormalizeOwner(owner)

	raw, err := s.kv.Get(ctx, historyKey(owner))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		log.Printf("memory: corrupt history for owner, starting fresh: %v", err)
		return nil, nil
	}
	return turns, nil
}

// SaveHistory persists the conversation, keeping only the most recent
// HistoryCap turns, and refreshes the expiry window.
func (s *Store) SaveHistory(ctx context.Context, owner string, turns []Turn) error {
	owner = NormalizeOwner(owner)

	if len(turns) > s.opts.HistoryCap {
		turns = turns[len(turns)-s.opts.HistoryCap:]
	}
	encoded, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.kv.Set(ctx, historyKey(owner), string(encoded), s.opts.HistoryTTL); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
