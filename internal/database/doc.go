// Package database provides the PostgreSQL connection pool and schema for the
// engagement store.
//
// Tables: posts, post_comments, guestbook, post_likes, page_views. Every table carries an
// AFTER INSERT trigger publishing the new row as JSON on "<table>_inserts", which
// the store's insert subscriptions LISTEN on.
package database
