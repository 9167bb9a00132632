package stats

import (
	"math"
	"sort"
)

// LocalMaxima returns the indices of local maxima in values using a
// symmetric comparison window of order bars: index i qualifies when
// values[i] compares greater than every neighbor within order bars on
// both sides. With strict=false the comparison is greater-or-equal,
// which admits plateau edges.
func LocalMaxima(values []float64, order int, strict bool) []int {
	return relExtrema(values, order, strict, false)
}

// LocalMinima is the mirror of LocalMaxima for local minima.
func LocalMinima(values []float64, order int, strict bool) []int {
	return relExtrema(values, order, strict, true)
}

func relExtrema(values []float64, order int, strict, invert bool) []int {
	if order < 1 {
		order = 1
	}
	var out []int
	n := len(values)
	for i := order; i < n-order; i++ {
		v := values[i]
		if math.IsNaN(v) {
			continue
		}
		ok := true
		for j := 1; j <= order && ok; j++ {
			ok = beats(v, values[i-j], strict, invert) && beats(v, values[i+j], strict, invert)
		}
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func beats(v, other float64, strict, invert bool) bool {
	if invert {
		v, other = other, v
	}
	if strict {
		return v > other
	}
	return v >= other
}

// Peak is a local maximum with its topographic prominence.
type Peak struct {
	Index      int
	Value      float64
	Prominence float64
}

// FindPeaks locates strict local maxima, computes each peak's
// prominence (height above the higher of the two valley floors that
// separate it from taller terrain), drops peaks below minProminence,
// and then enforces a minimum index separation by greedily keeping the
// most prominent peaks. Results are ordered by index.
func FindPeaks(values []float64, minProminence float64, minDistance int) []Peak {
	idxs := LocalMaxima(values, 1, true)
	peaks := make([]Peak, 0, len(idxs))
	for _, i := range idxs {
		p := prominence(values, i)
		if p >= minProminence {
			peaks = append(peaks, Peak{Index: i, Value: values[i], Prominence: p})
		}
	}
	if minDistance > 1 && len(peaks) > 1 {
		peaks = enforceDistance(peaks, minDistance)
	}
	sort.Slice(peaks, func(a, b int) bool { return peaks[a].Index < peaks[b].Index })
	return peaks
}

// prominence walks outward from a peak in both directions until a
// higher point or the series edge, tracking the lowest valley on each
// side; the prominence is the peak height above the higher valley.
func prominence(values []float64, peak int) float64 {
	h := values[peak]

	leftMin := h
	for i := peak - 1; i >= 0; i-- {
		if values[i] > h {
			break
		}
		if values[i] < leftMin {
			leftMin = values[i]
		}
	}

	rightMin := h
	for i := peak + 1; i < len(values); i++ {
		if values[i] > h {
			break
		}
		if values[i] < rightMin {
			rightMin = values[i]
		}
	}

	return h - math.Max(leftMin, rightMin)
}

// enforceDistance keeps peaks in descending prominence order,
// discarding any peak within minDistance of one already kept.
func enforceDistance(peaks []Peak, minDistance int) []Peak {
	byProm := make([]Peak, len(peaks))
	copy(byProm, peaks)
	sort.Slice(byProm, func(a, b int) bool {
		if byProm[a].Prominence != byProm[b].Prominence {
			return byProm[a].Prominence > byProm[b].Prominence
		}
		return byProm[a].Index < byProm[b].Index
	})

	var kept []Peak
	for _, p := range byProm {
		ok := true
		for _, k := range kept {
			if abs(p.Index-k.Index) < minDistance {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, p)
		}
	}
	return kept
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Percentile returns the p-th percentile (0-100) of values using
// linear interpolation between closest ranks.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
