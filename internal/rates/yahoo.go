package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Yahoo serves anchors from the Yahoo Finance chart API using FX symbols of
// the form "USDXAF=X". It is the primary source of every chain.
type Yahoo struct {
	baseURL string
	client  *http.Client
}

func NewYahoo(client *http.Client) *Yahoo {
	return NewYahooWithBaseURL(client, defaultYahooBaseURL)
}

func NewYahooWithBaseURL(client *http.Client, baseURL string) *Yahoo {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Yahoo{baseURL: baseURL, client: client}
}

func (y *Yahoo) Name() string { return "yahoo" }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

func (y *Yahoo) GetRate(ctx context.Context, from, to string) (float64, error) {
	symbol := from + to + "=X"
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", y.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	// Yahoo rejects requests without a browser-looking agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	res, err := y.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("yahoo %s: unexpected status %d", symbol, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	var out yahooChartResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if len(out.Chart.Result) == 0 {
		return 0, fmt.Errorf("yahoo %s: empty chart result", symbol)
	}
	meta := out.Chart.Result[0].Meta
	price := meta.RegularMarketPrice
	if price == 0 {
		price = meta.PreviousClose
	}
	if price == 0 {
		return 0, fmt.Errorf("yahoo %s: no price in chart meta", symbol)
	}
	return price, nil
}
