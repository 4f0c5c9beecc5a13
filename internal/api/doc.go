// Package api provides the market-data REST client used as the live price
// feed's polling fallback.
//
// Endpoints:
//   - GET /api/v3/ticker/24hr?symbols=["BTCUSDT",...]: rolling 24h statistics, batched
//   - GET /api/v3/ping: connectivity check
//
// Production base URL: https://api.binance.com
package api
