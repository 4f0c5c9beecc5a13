// Package store defines the engagement backend contract and its implementations.
//
// Collections:
//   - posts: blog posts, with views and likes counters
//   - post_comments: per-post comments, optionally replying to a parent comment
//   - guestbook: site-wide guestbook messages
//   - post_likes: one row per (post_id, visitor_fingerprint)
//   - page_views: visit log
//
// Postgres is the production backend; realtime inserts arrive through
// LISTEN/NOTIFY on "<collection>_inserts" channels fed by a trigger.
// Memory is used by tests and offline runs.
//
// Callers classify failures with errors.Is against ErrUniqueness and ErrNotFound,
// never by backend error codes.
package store
