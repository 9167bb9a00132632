// Package stats provides the small set of numerical routines shared by
// the zone extractor and pattern engines: a one-dimensional gaussian
// kernel density estimate, local-extrema and peak-prominence finders,
// a quadratic least-squares fit, and a linear-interpolation percentile.
// All routines are deterministic and allocation-light.
package stats

import (
	"math"

	scanerrors "swing-scanner/internal/errors"
)

// KernelDensity is a gaussian kernel density estimate over a set of
// one-dimensional sample points.
type KernelDensity struct {
	points    []float64
	bandwidth float64
}

// NewKernelDensity fits a KDE with the Scott rule-of-thumb bandwidth
// (sample standard deviation times n^(-1/5)). It fails on fewer than
// two points or a zero-variance sample.
func NewKernelDensity(points []float64) (*KernelDensity, error) {
	n := len(points)
	if n < 2 {
		return nil, scanerrors.ErrInsufficientData
	}
	sd := sampleStdDev(points)
	if sd <= 0 || math.IsNaN(sd) {
		return nil, scanerrors.ErrDegenerateInput
	}
	h := sd * math.Pow(float64(n), -0.2)
	if h <= 0 {
		return nil, scanerrors.ErrDegenerateInput
	}
	pts := make([]float64, n)
	copy(pts, points)
	return &KernelDensity{points: pts, bandwidth: h}, nil
}

// Bandwidth returns the selected kernel bandwidth.
func (k *KernelDensity) Bandwidth() float64 {
	return k.bandwidth
}

// Evaluate returns the density estimate at x.
func (k *KernelDensity) Evaluate(x float64) float64 {
	n := float64(len(k.points))
	norm := 1.0 / (n * k.bandwidth * math.Sqrt(2*math.Pi))
	var sum float64
	for _, p := range k.points {
		z := (x - p) / k.bandwidth
		sum += math.Exp(-0.5 * z * z)
	}
	return norm * sum
}

// EvaluateGrid evaluates the density on count evenly spaced points
// spanning [lo, hi] and returns the grid and the density values.
func (k *KernelDensity) EvaluateGrid(lo, hi float64, count int) (grid, density []float64) {
	grid = make([]float64, count)
	density = make([]float64, count)
	if count == 1 {
		grid[0] = lo
		density[0] = k.Evaluate(lo)
		return grid, density
	}
	step := (hi - lo) / float64(count-1)
	for i := 0; i < count; i++ {
		x := lo + float64(i)*step
		grid[i] = x
		density[i] = k.Evaluate(x)
	}
	return grid, density
}

// sampleStdDev is the standard deviation with Bessel's correction.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var m float64
	for _, v := range values {
		m += v
	}
	m /= float64(n)
	var variance float64
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	variance /= float64(n - 1)
	return math.Sqrt(variance)
}
