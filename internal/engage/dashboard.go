package engage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

// Stats are the admin dashboard counters.
type Stats struct {
	Posts          int64
	PublishedPosts int64
	Comments       int64
	Guestbook      int64
	PageViews      int64
}

// Dashboard gathers admin overview data.
type Dashboard struct {
	deps Deps
}

// Stats counts every collection concurrently.
func (d *Dashboard) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, collection string, f store.Filter) {
		g.Go(func() error {
			n, err := d.deps.Store.Count(ctx, collection, f)
			if err != nil {
				return fmt.Errorf("count %s: %w", collection, err)
			}
			*dst = n
			return nil
		})
	}
	count(&s.Posts, CollPosts, nil)
	count(&s.PublishedPosts, CollPosts, store.Where(store.Eq("published", true)))
	count(&s.Comments, CollComments, nil)
	count(&s.Guestbook, CollGuestbook, nil)
	count(&s.PageViews, CollPageViews, nil)

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// RecentPosts returns the latest posts including drafts.
func (d *Dashboard) RecentPosts(ctx context.Context, limit int) ([]model.Post, error) {
	rs, err := d.deps.Store.Query(ctx, CollPosts, store.Query{Order: store.NewestFirst, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]model.Post, len(rs))
	for i, r := range rs {
		out[i] = postFromRecord(r)
	}
	return out, nil
}
