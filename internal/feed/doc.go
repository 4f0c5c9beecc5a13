// Package feed implements the live price feed client.
//
// The client streams 24h tickers over a WebSocket and falls back to REST
// polling once the stream has failed too many times in a row:
//
//	Connecting --connected--> Streaming --closed--> Degraded(n)
//	Connecting --failed-----> Degraded(n)
//	Degraded(n) --retry elapsed--> Connecting        (n <= max)
//	Degraded(n) ----------------> Polling            (n > max, terminal)
//
// Transitions are computed by Next, a pure function. The Client executes the
// returned actions: dial, schedule a reconnect, or start the poller.
//
// Every price lands on a board that tracks the latest snapshot per symbol and
// flashes an up/down direction for a short window after each price change.
package feed
