package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/evafx/internal/config"
	"github.com/ent0n29/evafx/internal/kvstore"
	"github.com/ent0n29/evafx/internal/observability"
	"github.com/ent0n29/evafx/internal/policy"
	"github.com/ent0n29/evafx/internal/protocol"
)

const (
	invalidInboundReply = "Sorry, I couldn't process your message. Please try again."
	tooLongInboundReply = "Your message is too long for me to process. Please send a shorter message."
)

// Replier turns one inbound user message into one reply.
type Replier interface {
	HandleMessage(ctx context.Context, from, text string) string
}

type Server struct {
	cfg     config.Config
	replier Replier
	kv      kvstore.Store
	metrics *observability.Metrics
}

func New(cfg config.Config, replier Replier, kv kvstore.Store, metrics *observability.Metrics) *Server {
	return &Server{cfg: cfg, replier: replier, kv: kv, metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhook", s.handleWebhook)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/ping", s.handlePing)
	// Render free tier idles the service; an uptime pinger hits this.
	r.Get("/keep-alive", s.handleKeepAlive)
	r.Post("/keep-alive", s.handleKeepAlive)

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	in, err := protocol.ParseInbound(r)
	if err != nil || in.From == "" || in.Body == "" {
		if err != nil {
			log.Printf("httpapi: webhook parse failed: %v", err)
		}
		s.countWebhook("invalid")
		protocol.WriteTwiML(w, invalidInboundReply)
		return
	}
	if len(in.Body) > s.cfg.MaxInboundChars {
		log.Printf("httpapi: oversized message (%d chars) from %s", len(in.Body), policy.MaskPhone(in.From))
		s.countWebhook("too_long")
		protocol.WriteTwiML(w, tooLongInboundReply)
		return
	}

	reply := s.replier.HandleMessage(r.Context(), in.From, in.Body)

	s.countWebhook("ok")
	if s.metrics != nil {
		s.metrics.ObserveWebhookLatency(time.Since(start))
	}
	protocol.WriteTwiML(w, reply)
}

func (s *Server) countWebhook(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.WebhookRequests.WithLabelValues(outcome).Inc()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "evafx",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.kv.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"store":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleKeepAlive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
