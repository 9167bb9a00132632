// Package marketdata provides daily OHLCV bar providers.
package marketdata

import (
	"context"
	"sort"

	"swing-scanner/internal/models"
)

// Provider supplies an ordered daily bar sequence for a symbol over
// the provider's configured lookback window. Implementations may
// return empty or partial data; callers treat that as insufficient
// data, not as an error to propagate.
type Provider interface {
	DailyBars(ctx context.Context, symbol string) ([]models.PriceBar, error)
}

// Static is an in-memory Provider backed by a fixed symbol map. It is
// used by tests and offline runs.
type Static struct {
	Bars map[string][]models.PriceBar
}

// NewStatic creates a Static provider.
func NewStatic(bars map[string][]models.PriceBar) *Static {
	return &Static{Bars: bars}
}

// DailyBars returns the stored bars for symbol in ascending date
// order. Unknown symbols yield an empty slice.
func (s *Static) DailyBars(_ context.Context, symbol string) ([]models.PriceBar, error) {
	bars := s.Bars[symbol]
	out := make([]models.PriceBar, len(bars))
	copy(out, bars)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
