package app

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/ent0n29/evafx/internal/config"
)

// Build registers metrics on the default registry, so this package gets
// exactly one Build call across its tests.
func TestBuildWiresEverything(t *testing.T) {
	cfg := config.Config{
		MetricsNamespace: "evafx_test",
		LedgerCap:        100,
		IndexCap:         50,
		HistoryCap:       20,
		MaxInboundChars:  4096,
		DisplayTimezone:  "Africa/Douala",
		BroadcastEnabled: true,
	}

	res, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { _ = res.Cleanup() })

	if res.API == nil || res.Orchestrator == nil || res.Engine == nil || res.Metrics == nil {
		t.Fatalf("Build() = %+v, want all components wired", res)
	}
	if res.Broadcaster == nil {
		t.Fatalf("Broadcaster = nil, want one with broadcasts enabled")
	}

	// Without a redis URL the store degrades to noop; health must still work.
	w := httptest.NewRecorder()
	res.API.Router().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != 200 {
		t.Fatalf("healthz status = %d, want 200", w.Code)
	}
}
