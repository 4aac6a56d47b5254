package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/ent0n29/evafx/internal/messaging"
	"github.com/ent0n29/evafx/internal/observability"
	"github.com/ent0n29/evafx/internal/policy"
	"github.com/ent0n29/evafx/internal/rates"
)

// Broadcasts go out at market open, mid-afternoon and evening, Gulf time.
var defaultSchedules = []string{"0 9 * * *", "0 15 * * *", "0 19 * * *"}

const broadcastTimeout = 2 * time.Minute

type Options struct {
	Timezone  string
	Schedules []string
	From      string
}

// Broadcaster pushes the daily rates board to every subscriber on a cron
// schedule.
type Broadcaster struct {
	subs    *Subscriptions
	engine  *rates.Engine
	format  *rates.Formatter
	gateway messaging.Gateway
	from    string
	metrics *observability.Metrics

	schedules []string
	loc       *time.Location
	cron      *rcron.Cron
}

func NewBroadcaster(subs *Subscriptions, engine *rates.Engine, format *rates.Formatter, gateway messaging.Gateway, opts Options, metrics *observability.Metrics) *Broadcaster {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		log.Printf("scheduler: unknown timezone %q, broadcasting in UTC: %v", opts.Timezone, err)
		loc = time.UTC
	}
	schedules := opts.Schedules
	if len(schedules) == 0 {
		schedules = defaultSchedules
	}
	return &Broadcaster{
		subs:      subs,
		engine:    engine,
		format:    format,
		gateway:   gateway,
		from:      opts.From,
		metrics:   metrics,
		schedules: schedules,
		loc:       loc,
	}
}

// Start registers the broadcast schedules and begins ticking. Returns an
// error if any schedule expression is invalid.
func (b *Broadcaster) Start() error {
	c := rcron.New(rcron.WithLocation(b.loc))
	for _, spec := range b.schedules {
		if _, err := c.AddFunc(spec, b.run); err != nil {
			return fmt.Errorf("register broadcast schedule %q: %w", spec, err)
		}
	}
	c.Start()
	b.cron = c
	log.Printf("scheduler: broadcasting on %d schedules in %s", len(b.schedules), b.loc)
	return nil
}

// Stop halts the schedule and waits for an in-flight broadcast to finish.
func (b *Broadcaster) Stop() {
	if b.cron == nil {
		return
	}
	stopCtx := b.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(broadcastTimeout):
		log.Printf("scheduler: stop timed out waiting for a running broadcast")
	}
	log.Printf("scheduler: stopped")
}

func (b *Broadcaster) run() {
	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()
	sent, failed := b.Broadcast(ctx)
	log.Printf("scheduler: daily broadcast done, sent=%d failed=%d", sent, failed)
}

// Broadcast sends the current rates board to every subscriber. One failing
// recipient never blocks the rest.
func (b *Broadcaster) Broadcast(ctx context.Context) (sent, failed int) {
	recipients, err := b.subs.List(ctx)
	if err != nil {
		log.Printf("scheduler: subscriber list unavailable, skipping broadcast: %v", err)
		return 0, 0
	}
	if len(recipients) == 0 {
		log.Printf("scheduler: no subscribers, skipping broadcast")
		return 0, 0
	}

	body := b.format.Daily(b.engine.Snapshot(ctx))
	for _, to := range recipients {
		if _, err := b.gateway.Send(ctx, to, b.from, body); err != nil {
			failed++
			b.countSend("error")
			log.Printf("scheduler: broadcast to %s failed: %v", policy.MaskPhone(to), err)
			continue
		}
		sent++
		b.countSend("ok")
	}
	return sent, failed
}

func (b *Broadcaster) countSend(outcome string) {
	if b.metrics == nil {
		return
	}
	b.metrics.BroadcastSends.WithLabelValues(outcome).Inc()
}
