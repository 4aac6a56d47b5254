package messaging

import (
	"context"
	"fmt"
	"strings"
)

// Gateway delivers outbound WhatsApp messages. Implementations return the
// provider's message id on success.
type Gateway interface {
	Send(ctx context.Context, to, from, body string) (sid string, err error)
}

// ProviderError carries the provider's own error text so callers can surface
// it to the operator unchanged.
type ProviderError struct {
	Status  int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("provider error: status %d code %d", e.Status, e.Code)
}

// NormalizeWhatsApp makes sure an address carries the whatsapp: channel
// prefix expected by the provider.
func NormalizeWhatsApp(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return addr
	}
	if strings.HasPrefix(addr, "whatsapp:") {
		return addr
	}
	return "whatsapp:" + addr
}
