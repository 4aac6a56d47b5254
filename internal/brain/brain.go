package brain

import (
	"context"
	"sync"

	"github.com/ent0n29/evafx/internal/memory"
)

// Invocation is a model-requested action.
type Invocation struct {
	Name   string
	Params map[string]any
}

// Reply is one assistant turn: text plus an optional action to run.
type Reply struct {
	Text   string
	Action *Invocation
}

// Brain produces the assistant reply for a conversation. Implementations
// degrade to an apology text instead of returning transport-visible errors.
type Brain interface {
	Complete(ctx context.Context, history []memory.Turn, memories []memory.Record) (Reply, error)
}

// Mock is a scripted brain for orchestrator tests.
type Mock struct {
	mu    sync.Mutex
	calls int

	Reply Reply
	Err   error
}

func (m *Mock) Complete(_ context.Context, _ []memory.Turn, _ []memory.Record) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return Reply{}, m.Err
	}
	return m.Reply, nil
}

func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
