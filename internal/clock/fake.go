package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. AfterFunc callbacks run synchronously
// inside Advance, in deadline order, without the fake's lock held.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	waiters map[int]*fakeWaiter
}

type fakeWaiter struct {
	id       int
	deadline time.Time
	period   time.Duration // 0 for one-shot timers
	fn       func()
	ch       chan time.Time
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{
		now:     start,
		waiters: make(map[int]*fakeWaiter),
	}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers f to run once the fake has been advanced by d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.addLocked(d, 0)
	w.fn = fn
	return &fakeTimer{f: f, id: w.id}
}

// NewTicker registers a periodic waiter.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.addLocked(d, d)
	w.ch = make(chan time.Time, 1)
	return &fakeTicker{f: f, id: w.id, ch: w.ch}
}

// Waiters returns the number of pending timers and tickers.
func (f *Fake) Waiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// Advance moves time forward by d, firing everything that comes due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		w := f.nextDueLocked(target)
		if w == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = w.deadline
		fire := w.fn
		ch := w.ch
		if w.period > 0 {
			w.deadline = w.deadline.Add(w.period)
		} else {
			delete(f.waiters, w.id)
		}
		now := f.now
		f.mu.Unlock()

		if ch != nil {
			select {
			case ch <- now:
			default:
			}
		}
		if fire != nil {
			fire()
		}
	}
}

func (f *Fake) addLocked(d, period time.Duration) *fakeWaiter {
	f.nextID++
	w := &fakeWaiter{
		id:       f.nextID,
		deadline: f.now.Add(d),
		period:   period,
	}
	f.waiters[w.id] = w
	return w
}

func (f *Fake) nextDueLocked(target time.Time) *fakeWaiter {
	due := make([]*fakeWaiter, 0, len(f.waiters))
	for _, w := range f.waiters {
		if !w.deadline.After(target) {
			due = append(due, w)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

func (f *Fake) remove(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.waiters[id]; !ok {
		return false
	}
	delete(f.waiters, id)
	return true
}

type fakeTimer struct {
	f  *Fake
	id int
}

func (t *fakeTimer) Stop() bool {
	return t.f.remove(t.id)
}

type fakeTicker struct {
	f  *Fake
	id int
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.f.remove(t.id)
}
