package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	WebhookRequests *prometheus.CounterVec
	WebhookLatency  prometheus.Histogram
	RateFetches     *prometheus.CounterVec
	RateFallbacks   *prometheus.CounterVec
	FloorsApplied   *prometheus.CounterVec
	Actions         *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	BrainRetries    prometheus.Counter
	BroadcastSends  *prometheus.CounterVec

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WebhookRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook requests by outcome.",
		}, []string{"outcome"}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_latency_ms",
			Help:      "End-to-end webhook handling latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}),
		RateFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_fetches_total",
			Help:      "Anchor rate fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		RateFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_fallbacks_total",
			Help:      "Anchor fetches that fell past the primary source, by anchor.",
		}, []string{"anchor"}),
		FloorsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_floors_applied_total",
			Help:      "Published rates lifted to their minimum floor, by pair.",
		}, []string{"pair"}),
		Actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed actions by name and terminal status.",
		}, []string{"action", "status"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Durable store failures by operation.",
		}, []string{"op"}),
		BrainRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brain_retries_total",
			Help:      "Model completion attempts beyond the first.",
		}),
		BroadcastSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sends_total",
			Help:      "Scheduled broadcast deliveries by outcome.",
		}, []string{"outcome"}),
		turnStages: newTurnStageWindow(256),
	}
}

func (m *Metrics) ObserveWebhookLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.WebhookLatency.Observe(float64(d.Milliseconds()))
}

// ObserveTurnStage records one pipeline stage duration into the rolling
// latency window exposed at /v1/perf/latency.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnStages.Observe(stage, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.turnStages.ObserveIndicator(name)
}

func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	if m == nil {
		return TurnStageSnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.turnStages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
