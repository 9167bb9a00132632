// Package universe loads the ticker list a scan walks: plain text, one
// symbol per line, with an optional comma-separated sector label.
package universe

import (
	"bufio"
	"os"
	"strings"

	scanerrors "swing-scanner/internal/errors"
)

// DefaultBenchmark is the broad-market proxy used when none is
// configured.
const DefaultBenchmark = "SPY"

// Ticker is one scannable symbol.
type Ticker struct {
	Symbol string
	Sector string
}

// Universe is the symbol set for one scan.
type Universe struct {
	Benchmark string
	Tickers   []Ticker
}

// Load reads a universe file. Lines are "SYMBOL" or "SYMBOL,Sector";
// blank lines and lines starting with # are skipped. Symbols are
// upper-cased and de-duplicated, first sector label wins.
func Load(path, benchmark string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scanerrors.Wrapf(err, "open universe file %s", path)
	}
	defer f.Close()

	u := &Universe{Benchmark: benchmark}
	if u.Benchmark == "" {
		u.Benchmark = DefaultBenchmark
	}

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbol, sector, _ := strings.Cut(line, ",")
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		u.Tickers = append(u.Tickers, Ticker{
			Symbol: symbol,
			Sector: strings.TrimSpace(sector),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, scanerrors.Wrapf(err, "read universe file %s", path)
	}
	if len(u.Tickers) == 0 {
		return nil, scanerrors.Wrapf(scanerrors.ErrConfigInvalid,
			"universe file %s has no symbols", path)
	}
	return u, nil
}

// FromSymbols builds a universe directly from a symbol list, for
// ad-hoc scans that bypass the file.
func FromSymbols(symbols []string, benchmark string) *Universe {
	u := &Universe{Benchmark: benchmark}
	if u.Benchmark == "" {
		u.Benchmark = DefaultBenchmark
	}
	seen := make(map[string]bool)
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		u.Tickers = append(u.Tickers, Ticker{Symbol: s})
	}
	return u
}
