package engage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/localstate"
	"github.com/rickgao/homepage/internal/store"
)

// Likes toggles the visitor's like on a post. The visitor is identified by the
// fingerprint kept in local state.
type Likes struct {
	deps Deps
}

// Toggle likes the post, or unlikes it when the visitor already liked it.
// It returns the resulting state.
func (l *Likes) Toggle(ctx context.Context, postID uuid.UUID) (bool, error) {
	fp, err := localstate.Fingerprint(ctx, l.deps.State)
	if err != nil {
		return false, fmt.Errorf("visitor fingerprint: %w", err)
	}

	byVisitor := store.Where(store.Eq("post_id", postID), store.Eq("visitor_fingerprint", fp))

	_, err = l.deps.Store.Insert(ctx, CollLikes, store.Record{
		"post_id":             postID,
		"visitor_fingerprint": fp,
	})
	switch {
	case err == nil:
		l.adjustCount(ctx, postID, 1)
		l.deps.Metrics.LikeToggled(true)
		return true, nil

	case errors.Is(err, store.ErrUniqueness):
		// Already liked: the toggle becomes an unlike.
		if err := l.deps.Store.Delete(ctx, CollLikes, byVisitor); err != nil && !errors.Is(err, store.ErrNotFound) {
			return true, fmt.Errorf("unlike: %w", err)
		}
		l.adjustCount(ctx, postID, -1)
		l.deps.Metrics.LikeToggled(false)
		return false, nil

	default:
		return false, fmt.Errorf("like: %w", err)
	}
}

// adjustCount keeps the post's denormalized counter in step. The like row is
// authoritative, so a failure here is only logged.
func (l *Likes) adjustCount(ctx context.Context, postID uuid.UUID, delta int64) {
	err := l.deps.Store.Increment(ctx, CollPosts, store.Where(store.Eq("id", postID)), "likes", delta)
	if err != nil {
		l.deps.Logger.Warn("failed to update like count", "post_id", postID, "delta", delta, "error", err)
	}
}

// IsLiked reports whether the visitor has liked the post. A visitor without a
// fingerprint has liked nothing.
func (l *Likes) IsLiked(ctx context.Context, postID uuid.UUID) (bool, error) {
	fp, ok, err := l.deps.State.Get(ctx, localstate.FingerprintKey)
	if err != nil {
		return false, err
	}
	if !ok || fp == "" {
		return false, nil
	}

	n, err := l.deps.Store.Count(ctx, CollLikes, store.Where(store.Eq("post_id", postID), store.Eq("visitor_fingerprint", fp)))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
