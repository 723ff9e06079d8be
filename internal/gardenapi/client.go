// Package gardenapi provides the HTTP client for the Grow a Garden status API.
//
// The API is an unauthenticated JSON service with three read endpoints:
// stock, restock countdowns and weather events. Any call may fail or hang,
// so every request carries its own timeout and a token bucket keeps the
// poller and on-demand queries under the configured request rate.
package gardenapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Endpoint names, used in errors, logs and metrics.
const (
	EndpointStock   = "stock"
	EndpointRestock = "restock"
	EndpointWeather = "weather"
)

const (
	DefaultStockPath   = "/api/stock/GetStock"
	DefaultRestockPath = "/api/stock/restock-time"
	DefaultWeatherPath = "/api/GetWeather"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Paths holds the endpoint paths relative to the base URL.
type Paths struct {
	Stock   string
	Restock string
	Weather string
}

// DefaultPaths returns the paths used by the public API.
func DefaultPaths() Paths {
	return Paths{Stock: DefaultStockPath, Restock: DefaultRestockPath, Weather: DefaultWeatherPath}
}

// Client is the shared HTTP client for all endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	paths      Paths
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an API client with rate limiting. A zero timeout
// selects the 15s default.
func NewClient(baseURL string, paths Paths, timeout time.Duration, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		paths:      paths,
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Stock fetches the raw stock document.
func (c *Client) Stock(ctx context.Context) ([]byte, error) {
	return c.get(ctx, EndpointStock, c.paths.Stock)
}

// RestockTimes fetches the raw restock countdown document.
func (c *Client) RestockTimes(ctx context.Context) ([]byte, error) {
	return c.get(ctx, EndpointRestock, c.paths.Restock)
}

// Weather fetches the raw weather/event document.
func (c *Client) Weather(ctx context.Context) ([]byte, error) {
	return c.get(ctx, EndpointWeather, c.paths.Weather)
}

// get performs a rate-limited GET with a per-request timeout.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("http request %s: %w", path, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, truncate(body, 200)),
		}
	}

	c.logger.Debug("fetched", "endpoint", endpoint, "bytes", len(body), "duration", time.Since(start).Round(time.Millisecond))
	return body, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// FetchError is returned for network errors, timeouts and non-2xx replies.
type FetchError struct {
	Endpoint string
	Status   int // 0 when no response was received
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchFailure reports whether err is a FetchError.
func IsFetchFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// EndpointOf returns the endpoint of a FetchError, or "unknown".
func EndpointOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Endpoint
	}
	return "unknown"
}
