package market

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// SmoothLatest pre-smooths a recent daily price series with a simple
// moving average and returns its last value, for callers that want to feed
// a noisy daily feed (rather than a single scalar) into the "today"
// anchor — used by the historical-simulation harness job
// (internal/scheduler), which replays a full price history instead of one
// point-in-time reading.
func SmoothLatest(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("smoothing period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("need at least %d closes to smooth over a %d-day window, got %d", period, period, len(closes))
	}
	sma := talib.Sma(closes, period)
	return sma[len(sma)-1], nil
}
