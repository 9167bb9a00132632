package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/models"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooClient implements Provider using the Yahoo Finance chart API.
type YahooClient struct {
	client  *http.Client
	baseURL string
	rng     string // lookback range, e.g. "2y"
}

// NewYahooClient creates a Yahoo Finance provider with the given
// lookback range (e.g. "6mo", "2y").
func NewYahooClient(rng string) *YahooClient {
	if rng == "" {
		rng = "2y"
	}
	return &YahooClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: yahooChartURL,
		rng:     rng,
	}
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyBars fetches daily bars for symbol. Bars with missing quote
// fields are skipped; output is ascending by date.
func (y *YahooClient) DailyBars(ctx context.Context, symbol string) ([]models.PriceBar, error) {
	u := fmt.Sprintf(
		"%s/%s?interval=1d&range=%s&events=div%%2Csplit",
		y.baseURL, url.PathEscape(symbol), y.rng,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, scanerrors.NewDataError("chart", symbol, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scanerrors.NewDataError("chart", symbol, "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, scanerrors.NewDataError("chart", symbol,
			fmt.Sprintf("status %d", resp.StatusCode), scanerrors.ErrFetchFailed)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, scanerrors.NewDataError("chart", symbol, "decode", err)
	}
	if chart.Chart.Error != nil {
		return nil, scanerrors.NewDataError("chart", symbol,
			chart.Chart.Error.Description, scanerrors.ErrFetchFailed)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := deref(quote.Open, i)
		h := deref(quote.High, i)
		l := deref(quote.Low, i)
		c := deref(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		bar := models.PriceBar{
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:     *o,
			High:     *h,
			Low:      *l,
			Close:    *c,
			AdjClose: *c,
		}
		if a := deref(adj, i); a != nil {
			bar.AdjClose = *a
		}
		if v := deref(quote.Volume, i); v != nil {
			bar.Volume = *v
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func deref(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}
