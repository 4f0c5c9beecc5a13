// Package connection implements the market-data WebSocket client.
//
// A Client owns one connection to a combined ticker stream:
//   - Connect dials and starts the read and heartbeat goroutines
//   - Messages delivers every frame with its local receive time
//   - Errors delivers at most one error when the connection drops
//   - Close stops both goroutines and waits for them
//
// Reconnection is not handled here; the feed decides whether to redial.
package connection
