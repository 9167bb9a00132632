// Package rsline computes the relative-strength line of a stock against
// the benchmark: the day-by-day ratio of their adjusted closes over the
// trailing trading year.
package rsline

import (
	"sort"
	"time"

	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/models"
)

// Window is the trailing length of the RS line in trading days.
const Window = 252

// BlueDotFraction is how close to its 252-day high the RS line must sit
// to count as a fresh relative-strength high.
const BlueDotFraction = 0.995

// Line is a trailing relative-strength series. Ratios are ordered
// ascending by date and always exactly Window long.
type Line struct {
	Ratios []float64
}

// Build intersects the two series by calendar date and returns the RS
// line over the last Window common days. Fewer than Window common days
// is ErrInsufficientData: a partial RS line would make new-high
// detection meaningless.
func Build(stock, bench []models.PriceBar) (*Line, error) {
	benchByDate := make(map[time.Time]float64, len(bench))
	for _, b := range bench {
		if b.AdjClose > 0 {
			benchByDate[dateKey(b.Date)] = b.AdjClose
		}
	}

	type point struct {
		date  time.Time
		ratio float64
	}
	points := make([]point, 0, len(stock))
	for _, s := range stock {
		bc, ok := benchByDate[dateKey(s.Date)]
		if !ok || s.AdjClose <= 0 {
			continue
		}
		points = append(points, point{date: s.Date, ratio: s.AdjClose / bc})
	}
	if len(points) < Window {
		return nil, scanerrors.Wrapf(scanerrors.ErrInsufficientData,
			"rs line needs %d common days, have %d", Window, len(points))
	}

	sort.Slice(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })
	points = points[len(points)-Window:]

	ratios := make([]float64, Window)
	for i, p := range points {
		ratios[i] = p.ratio
	}
	return &Line{Ratios: ratios}, nil
}

// Today returns the most recent RS ratio.
func (l *Line) Today() float64 {
	return l.Ratios[len(l.Ratios)-1]
}

// High returns the maximum RS ratio in the window.
func (l *Line) High() float64 {
	high := l.Ratios[0]
	for _, r := range l.Ratios[1:] {
		if r > high {
			high = r
		}
	}
	return high
}

// BlueDot reports whether the RS line is at (or within a small fraction
// of) its trailing high, i.e. the stock is making a fresh
// relative-strength high versus the benchmark.
func (l *Line) BlueDot() bool {
	return l.Today() >= BlueDotFraction*l.High()
}

func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
