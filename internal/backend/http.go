package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tradesync/internal/model"
)

// HTTPClient implements Client over the backend's JSON gateway.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithRetries sets the retry budget and initial backoff.
func WithRetries(max int, backoff time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) HTTPOption {
	return func(c *HTTPClient) { c.logger = logger }
}

// NewHTTPClient builds a client against the given gateway base URL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &HTTPClient{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       zap.NewNop(),
		maxRetries:   2,
		retryBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	attempt := 0
	return withRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		attempt++
		if err := c.doJSON(ctx, path, out); err != nil {
			c.logger.Debug("backend request failed",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
}

func (c *HTTPClient) doJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) MarketVersions(ctx context.Context, marketID string) (model.VersionVector, error) {
	var vv model.VersionVector
	err := c.getJSON(ctx, "/markets/"+url.PathEscape(marketID)+"/versions", &vv)
	return vv, err
}

func (c *HTTPClient) PlatformSnapshot(ctx context.Context, marketID string) (*PlatformSnapshot, error) {
	var snap PlatformSnapshot
	if err := c.getJSON(ctx, "/markets/"+url.PathEscape(marketID)+"/platform", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) OrderbookSnapshot(ctx context.Context, marketID string) (*Orderbook, error) {
	var book Orderbook
	if err := c.getJSON(ctx, "/markets/"+url.PathEscape(marketID)+"/orderbook", &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *HTTPClient) CandleSnapshot(ctx context.Context, marketID string) (*CandleSet, error) {
	var set CandleSet
	if err := c.getJSON(ctx, "/markets/"+url.PathEscape(marketID)+"/candles", &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *HTTPClient) UserSnapshot(ctx context.Context, marketID, principal string) (*UserSnapshot, error) {
	var snap UserSnapshot
	path := "/markets/" + url.PathEscape(marketID) + "/user/" + url.PathEscape(principal)
	if err := c.getJSON(ctx, path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) IndexSnapshot(ctx context.Context, marketID string) (*IndexSnapshot, error) {
	var snap IndexSnapshot
	if err := c.getJSON(ctx, "/index/markets/"+url.PathEscape(marketID), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

var _ Client = (*HTTPClient)(nil)
