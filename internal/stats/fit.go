package stats

import (
	"math"

	scanerrors "swing-scanner/internal/errors"
)

// Quadratic holds the coefficients of y = a*x^2 + b*x + c.
type Quadratic struct {
	A, B, C float64
}

// VertexX returns the x-coordinate of the parabola's vertex, or -1
// when the curvature is numerically flat.
func (q Quadratic) VertexX() float64 {
	if math.Abs(q.A) < 1e-8 {
		return -1
	}
	return -q.B / (2 * q.A)
}

// FitQuadratic computes the least-squares parabola through (x, y)
// pairs by solving the 3x3 normal equations. It fails on fewer than
// three points, mismatched inputs, or a singular system (e.g. all x
// identical).
func FitQuadratic(x, y []float64) (Quadratic, error) {
	n := len(x)
	if n < 3 || n != len(y) {
		return Quadratic{}, scanerrors.ErrInsufficientData
	}

	var s0, s1, s2, s3, s4 float64
	var t0, t1, t2 float64
	for i := 0; i < n; i++ {
		xi, yi := x[i], y[i]
		if math.IsNaN(xi) || math.IsNaN(yi) {
			return Quadratic{}, scanerrors.ErrDegenerateInput
		}
		x2 := xi * xi
		s0 += 1
		s1 += xi
		s2 += x2
		s3 += x2 * xi
		s4 += x2 * x2
		t0 += yi
		t1 += xi * yi
		t2 += x2 * yi
	}

	// Normal equations, unknowns ordered (a, b, c).
	m := [3][4]float64{
		{s4, s3, s2, t2},
		{s3, s2, s1, t1},
		{s2, s1, s0, t0},
	}
	sol, ok := solve3(m)
	if !ok {
		return Quadratic{}, scanerrors.ErrNoConvergence
	}
	return Quadratic{A: sol[0], B: sol[1], C: sol[2]}, nil
}

// solve3 performs gaussian elimination with partial pivoting on an
// augmented 3x4 system.
func solve3(m [3][4]float64) ([3]float64, bool) {
	const eps = 1e-12
	for col := 0; col < 3; col++ {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < eps {
			return [3]float64{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := col + 1; r < 3; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < 4; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	var sol [3]float64
	for r := 2; r >= 0; r-- {
		v := m[r][3]
		for c := r + 1; c < 3; c++ {
			v -= m[r][c] * sol[c]
		}
		sol[r] = v / m[r][r]
	}
	return sol, true
}

// Standardize returns (values - mean) / stddev, using the population
// standard deviation. It fails when the deviation is numerically zero.
func Standardize(values []float64) ([]float64, error) {
	n := len(values)
	if n == 0 {
		return nil, scanerrors.ErrInsufficientData
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
	sd := math.Sqrt(variance / float64(n))
	if sd < 1e-8 {
		return nil, scanerrors.ErrDegenerateInput
	}
	out := make([]float64, n)
	for i, v := range values {
		out[i] = (v - m) / sd
	}
	return out, nil
}
