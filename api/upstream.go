package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// upstreamError carries a non-success response from a third-party API so
// the handler can propagate the upstream's own status and body.
type upstreamError struct {
	statusCode int
	body       string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.statusCode)
}

// upstreamClient issues the outbound calls behind the three proxy
// endpoints. Exactly one GET per inbound request, no retry, no cache.
type upstreamClient struct {
	weatherBaseURL string
	cryptoBaseURL  string
	weatherAPIKey  string

	weatherTimeout time.Duration
	priceTimeout   time.Duration
	marketsTimeout time.Duration

	client *http.Client
}

func newUpstreamClient(cfg config) *upstreamClient {
	return &upstreamClient{
		weatherBaseURL: cfg.upstream.weatherBaseURL,
		cryptoBaseURL:  cfg.upstream.cryptoBaseURL,
		weatherAPIKey:  cfg.upstream.weatherAPIKey,
		weatherTimeout: 10 * time.Second,
		priceTimeout:   10 * time.Second,
		marketsTimeout: 15 * time.Second,
		client:         &http.Client{},
	}
}

// fetch performs a single GET and returns the body. Non-2xx responses come
// back as *upstreamError; transport failures come back as-is.
func (c *upstreamClient) fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &upstreamError{statusCode: res.StatusCode, body: string(body)}
	}
	return body, nil
}

func (c *upstreamClient) getWeather(ctx context.Context, city, units string) ([]byte, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.weatherAPIKey)
	params.Set("units", units)
	return c.fetch(ctx, c.weatherBaseURL+"/data/2.5/weather?"+params.Encode(), c.weatherTimeout)
}

func (c *upstreamClient) getSimplePrice(ctx context.Context, ids, vsCurrency string) ([]byte, error) {
	params := url.Values{}
	params.Set("ids", ids)
	params.Set("vs_currencies", vsCurrency)
	params.Set("include_24hr_change", "true")
	return c.fetch(ctx, c.cryptoBaseURL+"/api/v3/simple/price?"+params.Encode(), c.priceTimeout)
}

func (c *upstreamClient) getMarkets(ctx context.Context, vsCurrency string, perPage, page int) ([]byte, error) {
	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", fmt.Sprint(perPage))
	params.Set("page", fmt.Sprint(page))
	params.Set("sparkline", "true")
	params.Set("price_change_percentage", "24h,7d")
	return c.fetch(ctx, c.cryptoBaseURL+"/api/v3/coins/markets?"+params.Encode(), c.marketsTimeout)
}
