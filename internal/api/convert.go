package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/homepage/internal/model"
)

// ParseDecimal parses an exchange decimal string such as "67012.34000000".
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty decimal")
	}
	return decimal.NewFromString(s)
}

// TickerFromResponse converts a REST ticker into the normalized model.
func TickerFromResponse(r Ticker24hResponse) (model.Ticker, error) {
	return NewTicker(r.Symbol, r.LastPrice, r.PriceChangePercent)
}

// NewTicker builds a normalized ticker from raw symbol, last price and 24h percent change.
func NewTicker(symbol, lastPrice, percentChange string) (model.Ticker, error) {
	if symbol == "" {
		return model.Ticker{}, errors.New("missing symbol")
	}
	price, err := ParseDecimal(lastPrice)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("last price %q: %w", lastPrice, err)
	}
	pct, err := ParseDecimal(percentChange)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("percent change %q: %w", percentChange, err)
	}
	return model.Ticker{
		Symbol:           strings.ToUpper(symbol),
		LastPrice:        price,
		PercentChange24h: pct,
	}, nil
}
