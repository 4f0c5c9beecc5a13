// Package engage implements the visitor engagement features on top of the store:
// posts, comments, guestbook, likes and page views.
//
// Comment and guestbook writes go through the submit cooldown. Live lists are
// reconciling caches over insert notifications: entries are de-duplicated by id
// and periodically re-queried, so duplicate or dropped notifications heal.
package engage
