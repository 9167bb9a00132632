// Package risk turns a raw setup into trade levels. Every engine funnels
// its candidates through the same Planner so entry, stop, and target
// math stays consistent across pattern types.
package risk

import "math"

// Levels are the trade parameters of an accepted setup.
type Levels struct {
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	RiskReward float64
}

// Planner computes trade levels from a setup's reference prices.
type Planner struct {
	EntryPad    float64 // entry is today's high times this pad
	StopATRMult float64 // ATR cushion subtracted below the stop reference
	MaxRiskFrac float64 // reject setups risking more than this fraction of entry
	RewardMult  float64 // target distance as a multiple of risk
}

// NewPlanner returns a Planner with the standard parameters: entry a
// hair above today's high, stop one fifth of an ATR below the
// protective level, risk capped at 15% of entry, 2R target.
func NewPlanner() *Planner {
	return &Planner{
		EntryPad:    1.001,
		StopATRMult: 0.2,
		MaxRiskFrac: 0.15,
		RewardMult:  2.0,
	}
}

// Plan computes trade levels for a candidate. high and low are today's
// bar extremes; stopRef is the engine's protective level (zone lower
// bound, trendline, or base low). The stop sits an ATR cushion below
// the lower of today's low and the reference. The setup is rejected
// (ok=false) when the implied risk is non-positive or exceeds the risk
// cap, which filters both inverted levels and stops so distant the
// trade cannot be sized sanely.
func (p *Planner) Plan(high, low, stopRef, atr float64) (Levels, bool) {
	if math.IsNaN(high) || math.IsNaN(low) || math.IsNaN(stopRef) || math.IsNaN(atr) {
		return Levels{}, false
	}

	entry := high * p.EntryPad
	stop := math.Min(low, stopRef) - p.StopATRMult*atr
	riskAmt := entry - stop
	if riskAmt <= 0 || riskAmt > p.MaxRiskFrac*entry {
		return Levels{}, false
	}

	return Levels{
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: entry + p.RewardMult*riskAmt,
		RiskReward: p.RewardMult,
	}, true
}
