package rates

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/evafx/internal/observability"
)

// anchor is one market rate fetched per snapshot. Every published pair is
// derived from these five.
type anchor struct {
	key      string
	from, to string
	static   float64
}

var anchors = []anchor{
	{key: "USD_XAF", from: "USD", to: "XAF", static: 558.0},
	{key: "USD_XOF", from: "USD", to: "XOF", static: 558.0},
	{key: "AED_USD", from: "AED", to: "USD", static: 0.272},
	{key: "USD_CNY", from: "USD", to: "CNY", static: 7.14},
	{key: "USD_EUR", from: "USD", to: "EUR", static: 0.858},
}

// Markup percentages added to the market rate per published pair.
const (
	markupXAFUSD  = 8.0
	markupXAFUSDT = 8.5
	markupXAFAED  = 8.5
	markupXAFCNY  = 9.5
	markupXAFEUR  = 7.0
	markupXOF     = 4.0
	markupXOFCNY  = 5.0
	markupXOFEUR  = 4.0

	floorXAFUSD = 604.5
)

// Snapshot is one consistent set of published selling rates. Partial success
// is valid: pairs whose anchors failed are absent from Pairs and reported in
// Unavailable instead.
type Snapshot struct {
	Pairs       map[string]float64
	Unavailable map[string]error
	GeneratedAt time.Time
}

func (s Snapshot) Has(pair string) bool {
	_, ok := s.Pairs[pair]
	return ok
}

type EngineOptions struct {
	Workers      int
	FetchTimeout time.Duration
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	return o
}

// Engine computes rate snapshots. Sources are tried in order per anchor; the
// static constant is the last resort.
type Engine struct {
	sources []Source
	opts    EngineOptions
	metrics *observability.Metrics
}

func NewEngine(sources []Source, opts EngineOptions, metrics *observability.Metrics) *Engine {
	return &Engine{sources: sources, opts: opts.withDefaults(), metrics: metrics}
}

// Snapshot fetches all anchors concurrently and derives the published pairs.
func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	type fetched struct {
		key  string
		rate float64
		err  error
	}

	jobs := make(chan anchor)
	results := make(chan fetched, len(anchors))

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				rate, err := e.fetchAnchor(ctx, a)
				results <- fetched{key: a.key, rate: rate, err: err}
			}
		}()
	}
	for _, a := range anchors {
		jobs <- a
	}
	close(jobs)
	wg.Wait()
	close(results)

	got := make(map[string]float64, len(anchors))
	failed := make(map[string]error)
	for r := range results {
		if r.err != nil {
			failed[r.key] = r.err
			continue
		}
		got[r.key] = r.rate
	}

	snap := Snapshot{
		Pairs:       make(map[string]float64),
		Unavailable: make(map[string]error),
		GeneratedAt: time.Now().UTC(),
	}

	derive := func(pair string, deps []string, compute func() float64) {
		for _, dep := range deps {
			if err, ok := failed[dep]; ok {
				snap.Unavailable[pair] = fmt.Errorf("%s anchor: %w", dep, err)
				return
			}
		}
		snap.Pairs[pair] = compute()
	}

	usdXAF := got["USD_XAF"]
	usdXOF := got["USD_XOF"]
	aedUSD := got["AED_USD"]
	usdCNY := got["USD_CNY"]
	usdEUR := got["USD_EUR"]

	derive("XAF_USD", []string{"USD_XAF"}, func() float64 {
		return e.floored("XAF_USD", publish(usdXAF, markupXAFUSD))
	})
	derive("XAF_USDT", []string{"USD_XAF"}, func() float64 {
		return e.floored("XAF_USDT", publish(usdXAF, markupXAFUSDT))
	})
	derive("XAF_AED", []string{"AED_USD", "USD_XAF"}, func() float64 {
		return publish(aedUSD*usdXAF, markupXAFAED)
	})
	derive("XOF_USD", []string{"USD_XOF"}, func() float64 {
		return publish(usdXOF, markupXOF)
	})
	derive("XOF_USDT", []string{"USD_XOF"}, func() float64 {
		return publish(usdXOF, markupXOF)
	})
	derive("XOF_AED", []string{"AED_USD", "USD_XOF"}, func() float64 {
		return publish(aedUSD*usdXOF, markupXOF)
	})
	derive("XAF_CNY", []string{"USD_CNY", "USD_XAF"}, func() float64 {
		return publish((1/usdCNY)*usdXAF, markupXAFCNY)
	})
	derive("XOF_CNY", []string{"USD_CNY", "USD_XOF"}, func() float64 {
		return publish((1/usdCNY)*usdXOF, markupXOFCNY)
	})
	derive("XAF_EUR", []string{"USD_EUR", "USD_XAF"}, func() float64 {
		return publish((1/usdEUR)*usdXAF, markupXAFEUR)
	})
	derive("XOF_EUR", []string{"USD_EUR", "USD_XOF"}, func() float64 {
		return publish((1/usdEUR)*usdXOF, markupXOFEUR)
	})

	return snap
}

// fetchAnchor walks the source chain and falls back to the anchor's static
// constant when every source fails.
func (e *Engine) fetchAnchor(ctx context.Context, a anchor) (float64, error) {
	for i, src := range e.sources {
		fctx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
		rate, err := src.GetRate(fctx, a.from, a.to)
		cancel()
		if err != nil {
			log.Printf("rates: %s source %s failed: %v", a.key, src.Name(), err)
			if e.metrics != nil {
				e.metrics.RateFetches.WithLabelValues(src.Name(), "error").Inc()
			}
			continue
		}
		if e.metrics != nil {
			e.metrics.RateFetches.WithLabelValues(src.Name(), "ok").Inc()
			if i > 0 {
				e.metrics.RateFallbacks.WithLabelValues(a.key).Inc()
			}
		}
		return rate, nil
	}
	if a.static > 0 {
		log.Printf("rates: %s using static fallback %v", a.key, a.static)
		if e.metrics != nil {
			e.metrics.RateFetches.WithLabelValues("static", "ok").Inc()
			e.metrics.RateFallbacks.WithLabelValues(a.key).Inc()
		}
		return a.static, nil
	}
	return 0, fmt.Errorf("%s: all sources failed: %w", a.key, ErrRateUnavailable)
}

func (e *Engine) floored(pair string, v float64) float64 {
	if v >= floorXAFUSD {
		return v
	}
	log.Printf("rates: %s floor applied: %v -> %v", pair, v, floorXAFUSD)
	if e.metrics != nil {
		e.metrics.FloorsApplied.WithLabelValues(pair).Inc()
	}
	return floorXAFUSD
}

// publish rounds to cents after applying the markup. Floors are applied to
// the rounded value, not the raw one.
func publish(raw, markupPct float64) float64 {
	return round2(raw * (1 + markupPct/100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeCurrency maps user-facing currency spellings to the canonical
// quote code. ok is false for unsupported currencies.
func NormalizeCurrency(s string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USD":
		return "USD", true
	case "USDT", "TETHER":
		return "USDT", true
	case "AED":
		return "AED", true
	case "CNY", "RMB", "YUAN":
		return "CNY", true
	case "EUR":
		return "EUR", true
	default:
		return "", false
	}
}

// Convert prices amount units of quote currency in the given base using the
// snapshot's published rate.
func Convert(snap Snapshot, amount float64, quote, base string) (float64, error) {
	q, ok := NormalizeCurrency(quote)
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", quote)
	}
	pair := strings.ToUpper(base) + "_" + q
	rate, ok := snap.Pairs[pair]
	if !ok {
		if err, reported := snap.Unavailable[pair]; reported {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %w", pair, ErrRateUnavailable)
	}
	return amount * rate, nil
}
