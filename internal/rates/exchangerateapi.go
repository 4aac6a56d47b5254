package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultExchangeRateAPIBaseURL = "https://api.exchangerate-api.com/v4/latest"

// ExchangeRateAPI is the secondary source. One call returns every rate quoted
// against the base currency, so the target is picked out of the table.
type ExchangeRateAPI struct {
	baseURL string
	client  *http.Client
}

func NewExchangeRateAPI(client *http.Client) *ExchangeRateAPI {
	return NewExchangeRateAPIWithBaseURL(client, defaultExchangeRateAPIBaseURL)
}

func NewExchangeRateAPIWithBaseURL(client *http.Client, baseURL string) *ExchangeRateAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExchangeRateAPI{baseURL: baseURL, client: client}
}

func (e *ExchangeRateAPI) Name() string { return "exchangerate-api" }

func (e *ExchangeRateAPI) GetRate(ctx context.Context, from, to string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/"+from, nil)
	if err != nil {
		return 0, fmt.Errorf("exchangerate-api %s: %w", from, err)
	}
	res, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("exchangerate-api %s: %w", from, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchangerate-api %s: unexpected status %d", from, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("exchangerate-api %s: %w", from, err)
	}

	var out struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("exchangerate-api %s: %w", from, err)
	}
	rate, ok := out.Rates[to]
	if !ok || rate == 0 {
		return 0, fmt.Errorf("exchangerate-api %s: no rate for %s", from, to)
	}
	return rate, nil
}
