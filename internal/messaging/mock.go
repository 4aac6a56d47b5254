package messaging

import (
	"context"
	"fmt"
	"sync"
)

// Sent is one message recorded by the mock gateway.
type Sent struct {
	To   string
	From string
	Body string
}

// MockGateway records sends for tests and can be primed to fail.
type MockGateway struct {
	mu    sync.Mutex
	sends []Sent

	Err error
}

func NewMockGateway() *MockGateway { return &MockGateway{} }

func (m *MockGateway) Send(_ context.Context, to, from, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.sends = append(m.sends, Sent{To: NormalizeWhatsApp(to), From: NormalizeWhatsApp(from), Body: body})
	return fmt.Sprintf("SM%032d", len(m.sends)), nil
}

func (m *MockGateway) Sends() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sends))
	copy(out, m.sends)
	return out
}
