// Package history fetches recent prices from the historical-data endpoint.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"arbwatch/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultTimeout = 5 * time.Second

// Fetcher returns recent ticks for one source, oldest first.
type Fetcher interface {
	Fetch(ctx context.Context, pair model.PairID, source model.ExchangeID) ([]model.PriceTick, error)
}

// Client is the HTTP Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit bounds outgoing requests per second. Zero or less disables
// limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a Client for the endpoint at baseURL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type point struct {
	Timestamp string           `json:"timestamp"`
	Price     *decimal.Decimal `json:"price"`
}

// Fetch requests history for (pair, source). Points are returned in the
// order the endpoint sent them.
func (c *Client) Fetch(ctx context.Context, pair model.PairID, source model.ExchangeID) ([]model.PriceTick, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid history URL: %w", err)
	}
	q := u.Query()
	q.Set("pair", pair.String())
	q.Set("source", string(source))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("history returned %d: %s", resp.StatusCode, body)
	}

	var points []point
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	ticks := make([]model.PriceTick, 0, len(points))
	for i, p := range points {
		if p.Price == nil || !p.Price.IsPositive() {
			c.logger.Debug("Skipping history point without a positive price", "source", source, "index", i)
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("history point %d: %w", i, err)
		}
		ticks = append(ticks, model.PriceTick{
			Source:     source,
			Pair:       pair,
			Price:      *p.Price,
			ObservedAt: ts,
		})
	}

	c.logger.Debug("Fetched history", "pair", pair, "source", source, "points", len(ticks))
	return ticks, nil
}
