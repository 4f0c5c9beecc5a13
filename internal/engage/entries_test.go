package engage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/submit"
)

func TestComments_AddAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.createPost(t, "Hello", true)

	first, err := f.svc.Comments.Add(ctx, post.ID, nil, submit.Payload{Name: " Ann ", Content: " first "})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if first.AuthorName != "Ann" || first.Body != "first" {
		t.Errorf("stored entry not trimmed: %+v", first)
	}
	if first.PostID == nil || *first.PostID != post.ID {
		t.Errorf("PostID = %v, want %v", first.PostID, post.ID)
	}

	_, err = f.svc.Comments.Add(ctx, post.ID, &first.ID, submit.Payload{Name: "Bo", Content: "reply"})
	if _, ok := submit.IsCooldown(err); !ok {
		t.Fatalf("second comment within 30s err = %v, want cooldown", err)
	}

	f.clk.Advance(30 * time.Second)
	reply, err := f.svc.Comments.Add(ctx, post.ID, &first.ID, submit.Payload{Name: "Bo", Content: "reply"})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	if reply.ParentID == nil || *reply.ParentID != first.ID {
		t.Errorf("ParentID = %v, want %v", reply.ParentID, first.ID)
	}

	list, err := f.svc.Comments.List(ctx, post.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != reply.ID {
		t.Errorf("List = %+v, want reply first", list)
	}

	if other, _ := f.svc.Comments.List(ctx, uuid.New()); len(other) != 0 {
		t.Errorf("unrelated post has %d comments", len(other))
	}
}

func TestGuestbook_SignCooldownIndependentOfComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.createPost(t, "Hello", true)

	if _, err := f.svc.Comments.Add(ctx, post.ID, nil, submit.Payload{Name: "a", Content: "b"}); err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	e, err := f.svc.Guestbook.Sign(ctx, submit.Payload{Name: "a", Content: "hello"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if e.PostID != nil {
		t.Errorf("guestbook entry has PostID %v", e.PostID)
	}

	var ve *submit.ValidationError
	if _, err := f.svc.Guestbook.Sign(ctx, submit.Payload{Name: "a"}); !errors.As(err, &ve) {
		t.Errorf("empty content err = %v, want ValidationError", err)
	}

	if err := f.svc.Guestbook.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if list, _ := f.svc.Guestbook.List(ctx, 0); len(list) != 0 {
		t.Errorf("List after delete = %+v", list)
	}
}

func TestGuestbook_WatchReceivesInserts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	changes := make(chan []model.Entry, 8)
	live, err := f.svc.Guestbook.Watch(ctx, func(es []model.Entry) { changes <- es })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer live.Close()

	if initial := <-changes; len(initial) != 0 {
		t.Fatalf("initial list = %+v", initial)
	}

	e, err := f.svc.Guestbook.Sign(ctx, submit.Payload{Name: "Ann", Content: "hi"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	select {
	case got := <-changes:
		if len(got) != 1 || got[0].ID != e.ID {
			t.Errorf("live list = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live list never saw the insert")
	}
}
