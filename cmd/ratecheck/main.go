package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ent0n29/evafx/internal/rates"
)

type options struct {
	timeout  time.Duration
	timezone string
	board    bool
	amount   float64
	currency string
}

func main() {
	var opts options
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-source fetch timeout")
	flag.StringVar(&opts.timezone, "tz", "Africa/Douala", "display timezone")
	flag.BoolVar(&opts.board, "board", false, "print the customer-facing daily board instead of raw pairs")
	flag.Float64Var(&opts.amount, "amount", 0, "optional amount to convert (requires -currency)")
	flag.StringVar(&opts.currency, "currency", "", "currency of -amount (USD, AED, USDT, CNY, EUR)")
	flag.Parse()

	engine := rates.NewEngine([]rates.Source{
		rates.NewYahoo(nil),
		rates.NewExchangeRateAPI(nil),
	}, rates.EngineOptions{FetchTimeout: opts.timeout}, nil)
	format := rates.NewFormatter(opts.timezone)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout+5*time.Second)
	defer cancel()
	snap := engine.Snapshot(ctx)

	switch {
	case opts.amount > 0 && opts.currency != "":
		fmt.Println(format.Exchange(snap, opts.amount, opts.currency))
	case opts.board:
		fmt.Println(format.Daily(snap))
	default:
		printPairs(snap)
	}

	if len(snap.Unavailable) > 0 {
		os.Exit(1)
	}
}

func printPairs(snap rates.Snapshot) {
	pairs := make([]string, 0, len(snap.Pairs))
	for pair := range snap.Pairs {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	for _, pair := range pairs {
		fmt.Printf("%-10s %.2f\n", pair, snap.Pairs[pair])
	}
	for pair, err := range snap.Unavailable {
		fmt.Fprintf(os.Stderr, "%-10s unavailable: %v\n", pair, err)
	}
}
