package engage

import (
	"context"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
	"github.com/rickgao/homepage/internal/submit"
)

// Comments manages per-post comments.
type Comments struct {
	deps Deps
}

// List returns a post's comments, newest first.
func (c *Comments) List(ctx context.Context, postID uuid.UUID) ([]model.Entry, error) {
	rs, err := c.deps.Store.Query(ctx, CollComments, store.Query{
		Filter: store.Where(store.Eq("post_id", postID)),
		Order:  store.NewestFirst,
	})
	if err != nil {
		return nil, err
	}
	return entriesFromRecords(rs), nil
}

// Add posts a comment through the comment cooldown. parentID is nil for a top-level comment.
func (c *Comments) Add(ctx context.Context, postID uuid.UUID, parentID *uuid.UUID, p submit.Payload) (model.Entry, error) {
	return c.deps.Submitter.Submit(ctx, submit.ClassComment, p, func(ctx context.Context, p submit.Payload) (model.Entry, error) {
		rec := store.Record{
			"post_id": postID,
			"name":    p.Name,
			"content": p.Content,
		}
		if parentID != nil {
			rec["parent_id"] = *parentID
		}
		saved, err := c.deps.Store.Insert(ctx, CollComments, rec)
		if err != nil {
			return model.Entry{}, err
		}
		return entryFromRecord(saved), nil
	})
}

// Watch keeps a live, newest-first list of a post's comments.
func (c *Comments) Watch(ctx context.Context, postID uuid.UUID, onChange func([]model.Entry)) (*LiveList, error) {
	return startLiveList(ctx, liveListConfig{
		Store:      c.deps.Store,
		Collection: CollComments,
		Filter:     store.Where(store.Eq("post_id", postID)),
		Clock:      c.deps.Clock,
		Interval:   c.deps.ReconcileInterval,
		OnChange:   onChange,
		Logger:     c.deps.Logger,
	})
}
