package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/clock"
)

func TestMemory_InsertGeneratesIDAndTimestamp(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(WithClock(clock.NewFake(start)))

	rec, err := m.Insert(context.Background(), "guestbook", Record{"name": "Ann"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, ok := rec.UUID("id"); !ok {
		t.Error("missing generated id")
	}
	if !rec.Time("created_at").Equal(start) {
		t.Errorf("created_at = %v, want %v", rec.Time("created_at"), start)
	}
}

func TestMemory_UniqueConstraint(t *testing.T) {
	ctx := context.Background()
	m := NewEngagementMemory()
	post := uuid.New()

	like := Record{"post_id": post, "visitor_fingerprint": "fp_1"}
	if _, err := m.Insert(ctx, "post_likes", like); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	// Same post as a string still collides.
	_, err := m.Insert(ctx, "post_likes", Record{"post_id": post.String(), "visitor_fingerprint": "fp_1"})
	if !errors.Is(err, ErrUniqueness) {
		t.Errorf("duplicate insert err = %v, want ErrUniqueness", err)
	}

	if _, err := m.Insert(ctx, "post_likes", Record{"post_id": post, "visitor_fingerprint": "fp_2"}); err != nil {
		t.Errorf("different visitor rejected: %v", err)
	}
}

func TestMemory_QueryOrderLimitOffset(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemory(WithClock(clk))

	for _, name := range []string{"a", "b", "c", "d"} {
		m.Insert(ctx, "guestbook", Record{"name": name})
		clk.Advance(time.Minute)
	}

	got, err := m.Query(ctx, "guestbook", Query{Order: NewestFirst, Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 || got[0].String("name") != "c" || got[1].String("name") != "b" {
		t.Errorf("got %v, want [c b]", names(got))
	}

	if got, _ := m.Query(ctx, "guestbook", Query{Offset: 10}); len(got) != 0 {
		t.Errorf("offset past end returned %d rows", len(got))
	}
}

func TestMemory_UpdateDeleteIncrement(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, _ := m.Insert(ctx, "posts", Record{"title": "T", "likes": int64(0)})
	id, _ := rec.UUID("id")
	byID := Where(Eq("id", id))

	if err := m.Increment(ctx, "posts", byID, "likes", 1); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := m.Increment(ctx, "posts", byID, "views", 5); err != nil {
		t.Fatalf("Increment of absent column failed: %v", err)
	}
	if err := m.Update(ctx, "posts", byID, Record{"title": "U"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	rows, _ := m.Query(ctx, "posts", Query{Filter: byID})
	if rows[0].Int64("likes") != 1 || rows[0].Int64("views") != 5 || rows[0].String("title") != "U" {
		t.Errorf("row = %v", rows[0])
	}

	if err := m.Delete(ctx, "posts", byID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := m.Delete(ctx, "posts", byID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if err := m.Update(ctx, "posts", byID, Record{"title": "V"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update of missing err = %v, want ErrNotFound", err)
	}
}

func TestMemory_UpdateEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewEngagementMemory()
	first, _ := m.Insert(ctx, "posts", Record{"slug": "first-post", "title": "First"})
	second, _ := m.Insert(ctx, "posts", Record{"slug": "second-post", "title": "Second"})
	secondID, _ := second.UUID("id")
	firstID, _ := first.UUID("id")

	err := m.Update(ctx, "posts", Where(Eq("id", secondID)), Record{"slug": "first-post", "title": "Renamed"})
	if !errors.Is(err, ErrUniqueness) {
		t.Fatalf("Update to taken slug err = %v, want ErrUniqueness", err)
	}
	rows, _ := m.Query(ctx, "posts", Query{Filter: Where(Eq("id", secondID))})
	if rows[0].String("slug") != "second-post" || rows[0].String("title") != "Second" {
		t.Errorf("rejected update was partially applied: %v", rows[0])
	}

	if err := m.Update(ctx, "posts", Where(Eq("id", secondID)), Record{"id": firstID}); !errors.Is(err, ErrUniqueness) {
		t.Errorf("Update to taken id err = %v, want ErrUniqueness", err)
	}

	// Rewriting a row's own slug is not a conflict.
	if err := m.Update(ctx, "posts", Where(Eq("id", firstID)), Record{"slug": "first-post", "title": "First!"}); err != nil {
		t.Errorf("Update keeping own slug failed: %v", err)
	}

	// Two matched rows cannot both take the same slug.
	if err := m.Update(ctx, "posts", nil, Record{"slug": "same"}); !errors.Is(err, ErrUniqueness) {
		t.Errorf("Update giving two rows one slug err = %v, want ErrUniqueness", err)
	}
	if n, _ := m.Count(ctx, "posts", Where(Eq("slug", "same"))); n != 0 {
		t.Errorf("%d rows changed by a rejected update", n)
	}
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, _ := m.Insert(ctx, "guestbook", Record{"name": "Ann"})
	rec["name"] = "mutated"

	rows, _ := m.Query(ctx, "guestbook", Query{})
	if rows[0].String("name") != "Ann" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestMemory_SubscribeInserts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	post := uuid.New()

	got := make(chan Record, 4)
	sub, err := m.SubscribeInserts(ctx, "post_comments", Where(Eq("post_id", post)), func(r Record) {
		got <- r
	})
	if err != nil {
		t.Fatalf("SubscribeInserts failed: %v", err)
	}

	m.Insert(ctx, "post_comments", Record{"post_id": uuid.New(), "content": "other"})
	m.Insert(ctx, "post_comments", Record{"post_id": post, "content": "mine"})

	select {
	case r := <-got:
		if r.String("content") != "mine" {
			t.Errorf("delivered %v, want the matching comment", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
	}

	sub.Unsubscribe()
	m.Insert(ctx, "post_comments", Record{"post_id": post, "content": "late"})

	select {
	case r := <-got:
		t.Errorf("delivery after Unsubscribe: %v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_SubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()

	sub, _ := m.SubscribeInserts(ctx, "guestbook", nil, func(Record) {})
	cancel()
	sub.Unsubscribe() // returns once the delivery goroutine exits

	m.mu.Lock()
	n := len(m.subs["guestbook"])
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("%d subscriptions still registered", n)
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	m.Close()

	if _, err := m.Insert(context.Background(), "guestbook", Record{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Insert after Close err = %v, want ErrClosed", err)
	}
}

func names(rs []Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String("name")
	}
	return out
}
