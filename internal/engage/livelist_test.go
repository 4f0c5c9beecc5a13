package engage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

func entryAt(offset time.Duration) model.Entry {
	return model.Entry{ID: uuid.New(), AuthorName: "x", Body: "y", CreatedAt: epoch.Add(offset)}
}

func startTestList(t *testing.T, f *fixture, interval time.Duration, onChange func([]model.Entry)) *LiveList {
	t.Helper()
	l, err := startLiveList(context.Background(), liveListConfig{
		Store:      f.st,
		Collection: CollGuestbook,
		Clock:      f.clk,
		Interval:   interval,
		OnChange:   onChange,
	})
	if err != nil {
		t.Fatalf("startLiveList failed: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func TestLiveList_MergeDeduplicatesByID(t *testing.T) {
	f := newFixture(t)
	var changes atomic.Int32
	l := startTestList(t, f, 0, func([]model.Entry) { changes.Add(1) })
	base := changes.Load()

	e := entryAt(time.Minute)
	if !l.Merge(e) {
		t.Fatal("first Merge reported no change")
	}
	if l.Merge(e) {
		t.Error("duplicate Merge reported a change")
	}
	if n := len(l.Items()); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
	if got := changes.Load() - base; got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestLiveList_NewestFirstRegardlessOfArrival(t *testing.T) {
	f := newFixture(t)
	l := startTestList(t, f, 0, nil)

	old, mid, recent := entryAt(time.Minute), entryAt(2*time.Minute), entryAt(3*time.Minute)
	l.Merge(mid)
	l.Merge(recent)
	l.Merge(old)

	items := l.Items()
	if len(items) != 3 || items[0].ID != recent.ID || items[1].ID != mid.ID || items[2].ID != old.ID {
		t.Errorf("order = %v", items)
	}
}

func TestLiveList_RefreshHealsMissedNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := startTestList(t, f, time.Minute, nil)

	// Merge an entry that never reached the store and is older than the
	// store's newest row: reconciliation drops it.
	phantom := entryAt(-time.Hour)
	l.Merge(phantom)

	f.st.Insert(ctx, CollGuestbook, store.Record{"name": "Ann", "content": "hi"})

	f.clk.Advance(time.Minute)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		items := l.Items()
		if len(items) == 1 && items[0].AuthorName == "Ann" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("after reconcile items = %+v", l.Items())
}

// racingStore runs afterQuery once, between reading the store and returning.
type racingStore struct {
	store.Store
	once       sync.Once
	afterQuery func()
}

func (s *racingStore) Query(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	rs, err := s.Store.Query(ctx, collection, q)
	if s.afterQuery != nil {
		s.once.Do(s.afterQuery)
	}
	return rs, err
}

func TestLiveList_RefreshKeepsRacingInsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.st.Insert(ctx, CollGuestbook, store.Record{"name": "stored", "content": "x"})

	rs := &racingStore{Store: f.st}
	l, err := startLiveList(ctx, liveListConfig{Store: rs, Collection: CollGuestbook})
	if err != nil {
		t.Fatalf("startLiveList failed: %v", err)
	}
	defer l.Close()

	// The notification for this entry lands while the query is in flight.
	racing := entryAt(time.Hour)
	rs.afterQuery = func() { l.Merge(racing) }

	if err := l.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !containsID(l.Items(), racing.ID) {
		t.Fatal("entry merged during the query was dropped")
	}

	// The next Refresh started after the merge, so the store is authoritative.
	if err := l.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if containsID(l.Items(), racing.ID) {
		t.Error("entry missing from the store survived a later Refresh")
	}
}

func TestLiveList_RefreshDropsUnconfirmedNewerMerge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := startTestList(t, f, 0, nil)

	f.st.Insert(ctx, CollGuestbook, store.Record{"name": "stored", "content": "x"})
	phantom := entryAt(time.Hour)
	l.Merge(phantom)

	if err := l.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if containsID(l.Items(), phantom.ID) {
		t.Error("entry merged before Refresh and absent from the store was kept")
	}
}

func TestLiveList_RefreshDropsDeletedEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := startTestList(t, f, 0, nil)

	a, _ := f.st.Insert(ctx, CollGuestbook, store.Record{"name": "A", "content": "first"})
	f.clk.Advance(time.Minute)
	b, _ := f.st.Insert(ctx, CollGuestbook, store.Record{"name": "B", "content": "second"})
	aID, _ := a.UUID("id")
	bID, _ := b.UUID("id")

	// Let both insert notifications land before reconciling.
	waitFor(t, func() bool { return len(l.Items()) == 2 }, "inserts never merged")

	refresh := func() []model.Entry {
		t.Helper()
		if err := l.Refresh(ctx); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		return l.Items()
	}

	if items := refresh(); len(items) != 2 {
		t.Fatalf("items = %+v, want A and B", items)
	}

	if err := f.st.Delete(ctx, CollGuestbook, store.Where(store.Eq("id", bID))); err != nil {
		t.Fatalf("Delete(B) failed: %v", err)
	}
	if items := refresh(); len(items) != 1 || items[0].ID != aID {
		t.Errorf("after deleting the newest entry items = %+v, want only A", items)
	}

	if err := f.st.Delete(ctx, CollGuestbook, store.Where(store.Eq("id", aID))); err != nil {
		t.Fatalf("Delete(A) failed: %v", err)
	}
	if items := refresh(); len(items) != 0 {
		t.Errorf("store empty, items = %+v", items)
	}
}

func containsID(es []model.Entry, id uuid.UUID) bool {
	for _, e := range es {
		if e.ID == id {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestLiveList_CloseStopsReconcile(t *testing.T) {
	f := newFixture(t)
	l := startTestList(t, f, time.Minute, nil)

	l.Close()
	l.Close()
	if n := f.clk.Waiters(); n != 0 {
		t.Errorf("%d clock waiters after Close", n)
	}
}
