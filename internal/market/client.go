package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avvvet/defidvisor-core/internal/fault"
)

// Client fetches token news and price data from the news and market-data APIs.
// Both are opaque upstreams; their response shapes are validated, never owned.
type Client struct {
	httpClient    *http.Client
	newsBaseURL   string
	newsAPIKey    string
	marketBaseURL string
}

func NewClient(newsBaseURL, newsAPIKey, marketBaseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		newsBaseURL:   newsBaseURL,
		newsAPIKey:    newsAPIKey,
		marketBaseURL: marketBaseURL,
	}
}

// News returns the latest articles matching a token keyword, newest first.
func (c *Client) News(ctx context.Context, keyword string, pageSize int) ([]Article, error) {
	const op = "market.news"

	query := url.Values{
		"q":        {keyword},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(pageSize)},
		"apiKey":   {c.newsAPIKey},
	}

	var body struct {
		Status   string    `json:"status"`
		Articles []Article `json:"articles"`
	}
	if err := c.getJSON(ctx, op, c.newsBaseURL+"/everything?"+query.Encode(), &body); err != nil {
		return nil, err
	}
	if body.Status != "ok" {
		return nil, fault.New(fault.MalformedResponse, op,
			fmt.Sprintf("news API reported status %q", body.Status))
	}

	return body.Articles, nil
}

// PriceHistory returns 30 days of daily prices for a token id.
func (c *Client) PriceHistory(ctx context.Context, tokenID string) ([]PricePoint, error) {
	const op = "market.priceHistory"

	query := url.Values{
		"vs_currency": {"usd"},
		"days":        {"30"},
		"interval":    {"daily"},
	}
	target := fmt.Sprintf("%s/coins/%s/market_chart?%s",
		c.marketBaseURL, url.PathEscape(tokenID), query.Encode())

	var body struct {
		Prices []PricePoint `json:"prices"`
	}
	if err := c.getJSON(ctx, op, target, &body); err != nil {
		return nil, err
	}

	return body.Prices, nil
}

// TopMarkets returns the current top coins by market cap.
func (c *Client) TopMarkets(ctx context.Context, limit int) ([]Coin, error) {
	const op = "market.topMarkets"

	query := url.Values{
		"vs_currency":             {"eur"},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(limit)},
		"page":                    {"1"},
		"sparkline":               {"false"},
		"price_change_percentage": {"24h"},
	}

	var coins []Coin
	if err := c.getJSON(ctx, op, c.marketBaseURL+"/coins/markets?"+query.Encode(), &coins); err != nil {
		return nil, err
	}

	return coins, nil
}

func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fault.FromStatus(op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.MalformedResponse, op, "failed to decode response", err)
	}
	return nil
}
