package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rickgao/homepage/internal/version"
)

// Request weight is budgeted per IP per minute. Responses report the running
// total in usedWeightHeader.
const (
	usedWeightHeader  = "X-Mbx-Used-Weight-1m"
	DefaultWeightWarn = 4800 // 80% of the exchange's 6000/min budget
)

// Client is a REST client for the exchange's public market-data endpoints.
// It needs no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	maxRetries   int
	retryBackoff time.Duration

	weightWarn int64
	usedWeight atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for baseURL, e.g. https://api.binance.com.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		userAgent:    "homepage/" + version.Version,
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
		weightWarn:   DefaultWeightWarn,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry count and the initial backoff.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithWeightWarning logs a warning whenever the reported request weight
// reaches limit. Zero disables the warning.
func WithWeightWarning(limit int) ClientOption {
	return func(c *Client) {
		c.weightWarn = int64(limit)
	}
}

// UsedWeight returns the request weight the exchange last reported for the
// current minute, or 0 before the first response.
func (c *Client) UsedWeight() int64 {
	return c.usedWeight.Load()
}

func (c *Client) recordWeight(h http.Header) {
	raw := h.Get(usedWeightHeader)
	if raw == "" {
		return
	}
	w, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return
	}
	prev := c.usedWeight.Swap(w)
	if c.weightWarn > 0 && w >= c.weightWarn && prev < c.weightWarn {
		c.logger.Warn("request weight near limit", "used_weight", w, "warn_at", c.weightWarn)
	}
}
