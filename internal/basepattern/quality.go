package basepattern

import "math"

// Quality-score boundaries. Each factor is worth 25 points and scales
// linearly between its full-credit and zero-credit edge.
const (
	rsFullCredit = 0.05 // 5% outperformance over 3 months
	tightFull    = 0.08 // depth at or under 8% is a perfect base
	volDryFull   = 0.30 // 30% of average volume is a full dry-up
	volDryZero   = 1.00
	factorPoints = 25.0
)

// qualityScore rates a base 0-100 from four equally weighted factors:
// relative-strength outperformance, base tightness, volume dry-up, and
// the RS new-high flag.
func (e *Engine) qualityScore(depth, maxDepth, volDry float64, rs RSContext) int {
	diff := rs.ReturnDiff3M
	if math.IsNaN(diff) {
		diff = 0
	}
	rsPts := clamp(diff/rsFullCredit*factorPoints, 0, factorPoints)

	var tightPts float64
	switch {
	case depth <= tightFull:
		tightPts = factorPoints
	case depth >= maxDepth:
		tightPts = 0
	default:
		tightPts = (1 - (depth-tightFull)/(maxDepth-tightFull)) * factorPoints
	}

	var volPts float64
	switch {
	case volDry <= volDryFull:
		volPts = factorPoints
	case volDry >= volDryZero:
		volPts = 0
	default:
		volPts = (volDryZero - volDry) / (volDryZero - volDryFull) * factorPoints
	}

	var dotPts float64
	if rs.BlueDot {
		dotPts = factorPoints
	}

	return int(math.Round(rsPts + tightPts + volPts + dotPts))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
