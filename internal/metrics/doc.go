// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Live feed connection state, stream messages and malformed drops
//   - Fallback poll outcomes
//   - Submit outcomes per action class (ok, invalid, cooldown, store_error)
//   - Like toggles
//
// When metrics are disabled callers get a no-op Recorder.
package metrics
