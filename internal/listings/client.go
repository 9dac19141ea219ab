// Package listings fetches recently added cryptocurrency listings from a
// CoinMarketCap-style HTTP API.
package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"listingwatch/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://pro-api.coinmarketcap.com"
	DefaultTimeout = 30 * time.Second
)

const (
	listingsPath = "/v1/cryptocurrency/listings/latest"
	apiKeyHeader = "X-CMC_PRO_API_KEY"
)

// Source provides the latest listings for one run.
type Source interface {
	FetchLatest(ctx context.Context, limit int) ([]*domain.Listing, error)
}

// Client implements Source over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a listings API client authenticated by API key.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Source = (*Client)(nil)

// listingsResponse is the raw API response envelope.
type listingsResponse struct {
	Status apiStatus    `json:"status"`
	Data   []apiListing `json:"data"`
}

type apiStatus struct {
	ErrorCode    int     `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type apiListing struct {
	Name      string       `json:"name"`
	Symbol    string       `json:"symbol"`
	Slug      string       `json:"slug"`
	DateAdded string       `json:"date_added"` // RFC3339
	Platform  *apiPlatform `json:"platform"`
	Quote     apiQuote     `json:"quote"`
}

type apiPlatform struct {
	Name string `json:"name"`
}

type apiQuote struct {
	USD apiUSDQuote `json:"USD"`
}

type apiUSDQuote struct {
	Price            float64 `json:"price"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
}

// FetchLatest retrieves up to limit listings ordered by date added, newest
// first. One shot per call: errors are returned to the caller unretried.
func (c *Client) FetchLatest(ctx context.Context, limit int) ([]*domain.Listing, error) {
	u, err := url.Parse(c.baseURL + listingsPath)
	if err != nil {
		return nil, fmt.Errorf("parse listings url: %w", err)
	}

	q := u.Query()
	q.Set("sort", "date_added")
	q.Set("sort_dir", "desc")
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if parsed.Status.ErrorCode != 0 {
		msg := ""
		if parsed.Status.ErrorMessage != nil {
			msg = *parsed.Status.ErrorMessage
		}
		return nil, fmt.Errorf("API error %d: %s", parsed.Status.ErrorCode, msg)
	}

	listings := make([]*domain.Listing, 0, len(parsed.Data))
	for _, raw := range parsed.Data {
		listing, err := toListing(raw)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

// toListing maps a raw API entry to the domain type. date_added arrives as
// RFC3339 and is carried as Unix milliseconds.
func toListing(raw apiListing) (*domain.Listing, error) {
	added, err := time.Parse(time.RFC3339, raw.DateAdded)
	if err != nil {
		return nil, fmt.Errorf("parse date_added for %q: %w", raw.Slug, err)
	}

	listing := &domain.Listing{
		Name:         raw.Name,
		Symbol:       raw.Symbol,
		Slug:         raw.Slug,
		DateAdded:    added.UnixMilli(),
		PriceUSD:     raw.Quote.USD.Price,
		PctChange1h:  raw.Quote.USD.PercentChange1h,
		PctChange24h: raw.Quote.USD.PercentChange24h,
	}

	if raw.Platform != nil && raw.Platform.Name != "" {
		name := raw.Platform.Name
		listing.Platform = &name
	}

	return listing, nil
}
