package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches spot prices from a CoinGecko-compatible price feed.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("pricefeed http %d", e.StatusCode)
	}
	return fmt.Sprintf("pricefeed http %d: %s", e.StatusCode, b)
}

// FlowPrice returns the FLOW/USD spot price. A zero or missing quote is an
// error: callers must never rank against a free price.
func (c *Client) FlowPrice(ctx context.Context) (float64, error) {
	return c.SimplePrice(ctx, "flow", "usd")
}

// SimplePrice queries the simple/price endpoint for one coin in one
// currency.
func (c *Client) SimplePrice(ctx context.Context, coinID, vsCurrency string) (float64, error) {
	if strings.TrimSpace(coinID) == "" {
		return 0, fmt.Errorf("coin id is required")
	}
	if strings.TrimSpace(vsCurrency) == "" {
		return 0, fmt.Errorf("vs currency is required")
	}

	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", vsCurrency)

	u := c.BaseURL + "/simple/price?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out map[string]map[string]float64
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	price := out[coinID][vsCurrency]
	if price <= 0 {
		return 0, fmt.Errorf("no %s/%s quote in price response", coinID, vsCurrency)
	}
	return price, nil
}
