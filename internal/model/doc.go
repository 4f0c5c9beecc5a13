// Package model defines shared data types used across the homepage tools.
//
// Record shapes mirror the hosted database schema (posts, comments, guestbook,
// likes, page_views). Price types describe the live market ticker.
//
// Conventions:
//   - IDs: uuid.UUID
//   - Timestamps: time.Time in UTC
//   - Prices: decimal.Decimal, never float64
package model
