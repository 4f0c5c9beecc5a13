package engage

import (
	"context"
	"testing"
	"time"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/localstate"
	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	st    *store.Memory
	state *localstate.Memory
	clk   *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(epoch)
	st := store.NewEngagementMemory(store.WithClock(clk))
	state := localstate.NewMemory()
	t.Cleanup(func() { st.Close() })

	return &fixture{
		svc:   New(Deps{Store: st, State: state, Clock: clk}),
		st:    st,
		state: state,
		clk:   clk,
	}
}

func (f *fixture) createPost(t *testing.T, title string, published bool) model.Post {
	t.Helper()
	p, err := f.svc.Posts.Create(context.Background(), PostInput{Title: title, Published: published})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", title, err)
	}
	f.clk.Advance(time.Second)
	return p
}
