package universe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	scanerrors "swing-scanner/internal/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "universe.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `# watchlist
AAPL,Technology
msft , Technology
NVDA

aapl,Duplicate Sector
JPM,Financials
`)
	u, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Benchmark != DefaultBenchmark {
		t.Errorf("benchmark = %q, want the default %q", u.Benchmark, DefaultBenchmark)
	}
	want := []Ticker{
		{"AAPL", "Technology"},
		{"MSFT", "Technology"},
		{"NVDA", ""},
		{"JPM", "Financials"},
	}
	if len(u.Tickers) != len(want) {
		t.Fatalf("tickers = %+v, want %+v", u.Tickers, want)
	}
	for i, w := range want {
		if u.Tickers[i] != w {
			t.Errorf("ticker[%d] = %+v, want %+v", i, u.Tickers[i], w)
		}
	}
}

func TestLoadCustomBenchmark(t *testing.T) {
	path := writeFile(t, "AAPL\n")
	u, err := Load(path, "QQQ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Benchmark != "QQQ" {
		t.Errorf("benchmark = %q, want QQQ", u.Benchmark)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "# only comments\n\n")
	if _, err := Load(path, ""); !errors.Is(err, scanerrors.ErrConfigInvalid) {
		t.Errorf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt"), ""); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFromSymbols(t *testing.T) {
	u := FromSymbols([]string{"aapl", " MSFT ", "AAPL", ""}, "")
	if len(u.Tickers) != 2 {
		t.Fatalf("tickers = %+v, want AAPL and MSFT", u.Tickers)
	}
	if u.Tickers[0].Symbol != "AAPL" || u.Tickers[1].Symbol != "MSFT" {
		t.Errorf("tickers = %+v", u.Tickers)
	}
}
