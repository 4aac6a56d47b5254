package app

import (
	"context"
	"log"
	"strings"

	"github.com/ent0n29/evafx/internal/actions"
	"github.com/ent0n29/evafx/internal/brain"
	"github.com/ent0n29/evafx/internal/config"
	"github.com/ent0n29/evafx/internal/conversation"
	"github.com/ent0n29/evafx/internal/httpapi"
	"github.com/ent0n29/evafx/internal/kvstore"
	"github.com/ent0n29/evafx/internal/memory"
	"github.com/ent0n29/evafx/internal/messaging"
	"github.com/ent0n29/evafx/internal/observability"
	"github.com/ent0n29/evafx/internal/rates"
	"github.com/ent0n29/evafx/internal/scheduler"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Orchestrator *conversation.Orchestrator
	Engine       *rates.Engine
	Broadcaster  *scheduler.Broadcaster
	Metrics      *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires every component from config. The result is ready to serve;
// the caller owns the HTTP listener and the broadcaster lifecycle.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	kv := kvstore.Open(ctx, cfg.RedisURL)

	mem := memory.New(kv, memory.Options{
		LedgerCap:  cfg.LedgerCap,
		IndexCap:   cfg.IndexCap,
		HistoryCap: cfg.HistoryCap,
		HistoryTTL: cfg.HistoryTTL,
	})

	engine := rates.NewEngine([]rates.Source{
		rates.NewYahoo(nil),
		rates.NewExchangeRateAPI(nil),
	}, rates.EngineOptions{
		Workers:      cfg.RateFetchWorkers,
		FetchTimeout: cfg.RateFetchTimeout,
	}, metrics)
	format := rates.NewFormatter(cfg.DisplayTimezone)

	var gateway messaging.Gateway
	if strings.TrimSpace(cfg.TwilioAccountSID) == "" || strings.TrimSpace(cfg.TwilioAuthToken) == "" {
		log.Printf("app: twilio credentials not set, outbound messages are recorded only")
		gateway = messaging.NewMockGateway()
	} else {
		gateway = messaging.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioRequestTimeout)
	}

	exec := actions.NewExecutor(mem, kv, gateway, cfg.TwilioWhatsAppFrom, metrics)

	b := brain.NewOpenAI(cfg.OpenAIAPIKey, brain.OpenAIOptions{
		Model:       cfg.OpenAIModel,
		Timeout:     cfg.BrainTimeout,
		MaxAttempts: cfg.BrainMaxAttempts,
		RetryBase:   cfg.BrainRetryBaseWait,
	}, metrics)

	subs := scheduler.NewSubscriptions(kv)
	fx := conversation.NewFXRouter(engine, format, subs)
	orchestrator := conversation.New(mem, exec, b, fx, metrics)

	var broadcaster *scheduler.Broadcaster
	if cfg.BroadcastEnabled {
		broadcaster = scheduler.NewBroadcaster(subs, engine, format, gateway, scheduler.Options{
			Timezone: cfg.BroadcastTimezone,
			From:     cfg.TwilioWhatsAppFrom,
		}, metrics)
	}

	api := httpapi.New(cfg, orchestrator, kv, metrics)

	cleanup := func() error {
		if broadcaster != nil {
			broadcaster.Stop()
		}
		return kv.Close()
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Orchestrator: orchestrator,
		Engine:       engine,
		Broadcaster:  broadcaster,
		Metrics:      metrics,
		Cleanup:      cleanup,
	}, nil
}
