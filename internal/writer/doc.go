// Package writer records live price snapshots into the price_ticks table.
//
// Snapshots are queued by the feed subscriber and flushed in batches, either
// when BatchSize rows are pending or every FlushInterval. Rows are append-only;
// a repeated (symbol, observed_at) pair is counted as a conflict and skipped.
package writer
