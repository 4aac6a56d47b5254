package rates

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubSource struct {
	name  string
	rates map[string]float64
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) GetRate(_ context.Context, from, to string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	rate, ok := s.rates[from+"_"+to]
	if !ok {
		return 0, errors.New("no stub rate")
	}
	return rate, nil
}

func marketStub() *stubSource {
	return &stubSource{
		name: "stub",
		rates: map[string]float64{
			"USD_XAF": 600,
			"USD_XOF": 590,
			"AED_USD": 0.2723,
			"USD_CNY": 7.2,
			"USD_EUR": 0.9,
		},
	}
}

func approx(t *testing.T, snap Snapshot, pair string, want float64) {
	t.Helper()
	got, ok := snap.Pairs[pair]
	if !ok {
		t.Fatalf("Pairs[%q] missing, want %v", pair, want)
	}
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("Pairs[%q] = %v, want %v", pair, got, want)
	}
}

func TestSnapshotDerivesAllPairs(t *testing.T) {
	e := NewEngine([]Source{marketStub()}, EngineOptions{Workers: 2}, nil)

	snap := e.Snapshot(context.Background())
	if len(snap.Unavailable) != 0 {
		t.Fatalf("Unavailable = %v, want empty", snap.Unavailable)
	}
	if len(snap.Pairs) != 10 {
		t.Fatalf("len(Pairs) = %d, want 10", len(snap.Pairs))
	}

	approx(t, snap, "XAF_USD", 648.00)   // 600 * 1.08
	approx(t, snap, "XAF_USDT", 651.00)  // 600 * 1.085
	approx(t, snap, "XOF_USD", 613.60)   // 590 * 1.04
	approx(t, snap, "XOF_USDT", 613.60)  // same markup as USD
	approx(t, snap, "XAF_AED", 177.27)   // 0.2723 * 600 * 1.085
	approx(t, snap, "XOF_AED", 167.08)   // 0.2723 * 590 * 1.04
	approx(t, snap, "XAF_CNY", 91.25)    // (600 / 7.2) * 1.095
	approx(t, snap, "XOF_CNY", 86.04)    // (590 / 7.2) * 1.05
	approx(t, snap, "XAF_EUR", 713.33)   // (600 / 0.9) * 1.07
	approx(t, snap, "XOF_EUR", 681.78)   // (590 / 0.9) * 1.04
	if snap.GeneratedAt.IsZero() {
		t.Fatalf("GeneratedAt zero, want set")
	}
}

func TestSnapshotAppliesFloorAfterRounding(t *testing.T) {
	src := marketStub()
	src.rates["USD_XAF"] = 540 // 540 * 1.08 = 583.2, below the floor
	e := NewEngine([]Source{src}, EngineOptions{}, nil)

	snap := e.Snapshot(context.Background())
	approx(t, snap, "XAF_USD", 604.5)
	approx(t, snap, "XAF_USDT", 604.5)
	// Floors only guard the XAF dollar pairs.
	approx(t, snap, "XOF_USD", 613.60)
}

func TestSnapshotFallsBackToSecondarySource(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("down")}
	secondary := marketStub()
	e := NewEngine([]Source{primary, secondary}, EngineOptions{}, nil)

	snap := e.Snapshot(context.Background())
	approx(t, snap, "XAF_USD", 648.00)
	if primary.calls != 5 {
		t.Fatalf("primary.calls = %d, want 5 (one per anchor)", primary.calls)
	}
}

func TestSnapshotUsesStaticConstantsWhenAllSourcesFail(t *testing.T) {
	down := &stubSource{name: "down", err: errors.New("down")}
	e := NewEngine([]Source{down, down}, EngineOptions{}, nil)

	snap := e.Snapshot(context.Background())
	if len(snap.Unavailable) != 0 {
		t.Fatalf("Unavailable = %v, want empty (statics cover every anchor)", snap.Unavailable)
	}
	// 558 * 1.08 = 602.64, lifted to the floor.
	approx(t, snap, "XAF_USD", 604.5)
	approx(t, snap, "XOF_USD", 580.32) // 558 * 1.04
	approx(t, snap, "XAF_CNY", 85.58)  // (558 / 7.14) * 1.095
}

func TestConvertNormalizesCurrencyAliases(t *testing.T) {
	snap := Snapshot{Pairs: map[string]float64{"XAF_CNY": 90, "XAF_USDT": 650}}

	got, err := Convert(snap, 100, "rmb", "XAF")
	if err != nil {
		t.Fatalf("Convert(rmb) error = %v", err)
	}
	if got != 9000 {
		t.Fatalf("Convert(100 rmb) = %v, want 9000", got)
	}

	got, err = Convert(snap, 2, "tether", "xaf")
	if err != nil {
		t.Fatalf("Convert(tether) error = %v", err)
	}
	if got != 1300 {
		t.Fatalf("Convert(2 tether) = %v, want 1300", got)
	}
}

func TestConvertMissingPairReturnsSentinel(t *testing.T) {
	_, err := Convert(Snapshot{Pairs: map[string]float64{}}, 100, "USD", "XAF")
	if !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("Convert() error = %v, want ErrRateUnavailable", err)
	}
}

func TestConvertRejectsUnknownCurrency(t *testing.T) {
	_, err := Convert(Snapshot{}, 100, "GBP", "XAF")
	if err == nil {
		t.Fatalf("Convert(GBP) error = nil, want unsupported currency")
	}
}
