// Package poller implements the fallback price poller.
//
// The poller:
//   - Fetches 24h tickers for every configured symbol in one REST request
//   - Fetches immediately on Start, then once per interval
//   - Reports failures to the handler and keeps polling
//
// Time comes from an injected clock so the cadence is testable.
package poller
