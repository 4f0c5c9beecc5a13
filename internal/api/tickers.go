package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rickgao/homepage/internal/model"
)

// GetTickers24h fetches rolling 24h statistics for symbols in one request.
// Entries that fail to parse are skipped and logged.
func (c *Client) GetTickers24h(ctx context.Context, symbols []string) ([]model.Ticker, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols requested")
	}

	list, err := json.Marshal(symbols)
	if err != nil {
		return nil, fmt.Errorf("encode symbols: %w", err)
	}
	query := url.Values{}
	query.Set("symbols", string(list))

	var resp []Ticker24hResponse
	if err := c.get(ctx, "/api/v3/ticker/24hr", query, &resp); err != nil {
		return nil, fmt.Errorf("get tickers: %w", err)
	}

	out := make([]model.Ticker, 0, len(resp))
	for _, r := range resp {
		t, err := TickerFromResponse(r)
		if err != nil {
			c.logger.Warn("skipping unparseable ticker", "symbol", r.Symbol, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Ping checks connectivity to the REST API.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct{}
	return c.get(ctx, "/api/v3/ping", nil, &resp)
}
