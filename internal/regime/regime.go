// Package regime implements the benchmark market-regime gate. The
// whole scan is permitted only when the benchmark closes above its
// 20-day EMA; any failure to establish that fact counts as bearish.
package regime

import (
	"fmt"

	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
)

const (
	emaPeriod = 20
	// minBars leaves headroom over the EMA warm-up so a fresh listing
	// cannot slip through on a barely-defined average.
	minBars = 22
)

// Evaluate classifies the market regime from benchmark daily bars.
// The filter fails closed: short history or an undefined EMA yields a
// bearish regime with an error label rather than an error return.
func Evaluate(bars []models.PriceBar) models.Regime {
	if len(bars) < minBars {
		return errorRegime(fmt.Sprintf("insufficient benchmark history (%d bars)", len(bars)))
	}

	closes := indicators.AdjCloses(bars)
	ema20 := indicators.Last(indicators.EMA(closes, emaPeriod))
	if !indicators.Defined(ema20) {
		return errorRegime("benchmark EMA20 undefined")
	}

	last := closes[len(closes)-1]
	r := models.Regime{
		IsBullish: last > ema20,
		Close:     last,
		EMA20:     ema20,
	}
	if r.IsBullish {
		r.Label = "BULLISH"
	} else {
		r.Label = "BEARISH"
	}
	return r
}

func errorRegime(reason string) models.Regime {
	return models.Regime{
		IsBullish: false,
		Label:     "ERROR: " + reason,
	}
}
