package engage

import (
	"context"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
	"github.com/rickgao/homepage/internal/submit"
)

// Guestbook manages site-wide guestbook messages.
type Guestbook struct {
	deps Deps
}

// List returns guestbook messages, newest first. limit 0 returns all.
func (g *Guestbook) List(ctx context.Context, limit int) ([]model.Entry, error) {
	rs, err := g.deps.Store.Query(ctx, CollGuestbook, store.Query{Order: store.NewestFirst, Limit: limit})
	if err != nil {
		return nil, err
	}
	return entriesFromRecords(rs), nil
}

// Sign adds a message through the guestbook cooldown.
func (g *Guestbook) Sign(ctx context.Context, p submit.Payload) (model.Entry, error) {
	return g.deps.Submitter.Submit(ctx, submit.ClassGuestbook, p, func(ctx context.Context, p submit.Payload) (model.Entry, error) {
		saved, err := g.deps.Store.Insert(ctx, CollGuestbook, store.Record{
			"name":    p.Name,
			"content": p.Content,
		})
		if err != nil {
			return model.Entry{}, err
		}
		return entryFromRecord(saved), nil
	})
}

// Watch keeps a live, newest-first list of guestbook messages.
func (g *Guestbook) Watch(ctx context.Context, onChange func([]model.Entry)) (*LiveList, error) {
	return startLiveList(ctx, liveListConfig{
		Store:      g.deps.Store,
		Collection: CollGuestbook,
		Clock:      g.deps.Clock,
		Interval:   g.deps.ReconcileInterval,
		OnChange:   onChange,
		Logger:     g.deps.Logger,
	})
}

// Delete removes a message. Admin only.
func (g *Guestbook) Delete(ctx context.Context, id uuid.UUID) error {
	return g.deps.Store.Delete(ctx, CollGuestbook, store.Where(store.Eq("id", id)))
}
