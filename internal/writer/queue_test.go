package writer

import (
	"sync"
	"testing"
)

func TestQueue_PushDrain(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	got := q.Drain(3)
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("Drain(3) = %v, want [0 1 2]", got)
	}
	got = q.Drain(0)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("Drain(0) = %v, want [3 4]", got)
	}
	if got := q.Drain(0); got != nil {
		t.Errorf("Drain on empty = %v, want nil", got)
	}
}

func TestQueue_GrowAt70Percent(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 7; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Capacity != 20 {
		t.Errorf("Capacity = %d, want 20 after 70%% fill", stats.Capacity)
	}
	if stats.Resizes != 1 {
		t.Errorf("Resizes = %d, want 1", stats.Resizes)
	}

	got := q.Drain(0)
	for i, v := range got {
		if v != i {
			t.Fatalf("Drain()[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestQueue_GrowPreservesOrderWhenWrapped(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 6; i++ {
		q.Push(i)
	}
	q.Drain(5)

	// 6..10 wrap the tail past the end; 11 crosses 70% and grows.
	for i := 6; i < 12; i++ {
		q.Push(i)
	}
	if q.Stats().Resizes != 1 {
		t.Fatalf("Resizes = %d, want 1", q.Stats().Resizes)
	}

	got := q.Drain(0)
	if len(got) != 7 {
		t.Fatalf("drained %d items, want 7", len(got))
	}
	for i, v := range got {
		if v != i+5 {
			t.Fatalf("Drain()[%d] = %d, want %d", i, v, i+5)
		}
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[string](4)
	q.Push("a")
	q.Close()

	if q.Push("b") {
		t.Error("Push after Close returned true")
	}
	if got := q.Drain(0); len(got) != 1 || got[0] != "a" {
		t.Errorf("Drain after Close = %v, want [a]", got)
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := NewQueue[int](1)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	stats := q.Stats()
	if stats.Count != 800 || stats.Pushed != 800 {
		t.Errorf("Count = %d, Pushed = %d, want 800", stats.Count, stats.Pushed)
	}
}
