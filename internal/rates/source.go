package rates

import (
	"context"
	"errors"
)

// ErrRateUnavailable marks an anchor whose whole source chain failed and whose
// static fallback is zero. Derived pairs inherit it in Snapshot.Unavailable.
var ErrRateUnavailable = errors.New("rate unavailable")

// Source resolves the market rate for one currency pair. Implementations must
// honor ctx cancellation and return an error rather than a zero rate.
type Source interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
	Name() string
}
