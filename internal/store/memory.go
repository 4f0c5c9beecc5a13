package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/clock"
)

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the clock used for created_at.
func WithClock(c clock.Clock) MemoryOption {
	return func(m *Memory) {
		m.clock = c
	}
}

// WithUnique declares a unique constraint over columns of collection.
func WithUnique(collection string, columns ...string) MemoryOption {
	return func(m *Memory) {
		m.unique[collection] = append(m.unique[collection], columns)
	}
}

// Memory is an in-process Store. Inserts get an "id" (uuid) and "created_at"
// when the record does not carry them.
type Memory struct {
	mu     sync.Mutex
	clock  clock.Clock
	rows   map[string][]Record
	unique map[string][][]string
	subs   map[string][]*memorySub
	closed bool
}

// NewMemory creates an empty Memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		clock:  clock.Real(),
		rows:   make(map[string][]Record),
		unique: make(map[string][][]string),
		subs:   make(map[string][]*memorySub),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewEngagementMemory is a Memory store carrying the engagement schema's unique constraints.
func NewEngagementMemory(opts ...MemoryOption) *Memory {
	base := []MemoryOption{
		WithUnique("posts", "slug"),
		WithUnique("post_likes", "post_id", "visitor_fingerprint"),
	}
	return NewMemory(append(base, opts...)...)
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	var out []Record
	for _, r := range m.rows[collection] {
		if q.Filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}

	if len(q.Order) > 0 {
		slices.SortStableFunc(out, func(a, b Record) int {
			for _, o := range q.Order {
				c := compareValues(a[o.Column], b[o.Column])
				if o.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Count(_ context.Context, collection string, f Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	var n int64
	for _, r := range m.rows[collection] {
		if f.Matches(r) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Insert(_ context.Context, collection string, rec Record) (Record, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	row := rec.Clone()
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.New()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = m.clock.Now()
	}

	if err := m.checkUniqueLocked(collection, row); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.rows[collection] = append(m.rows[collection], row)

	var targets []*memorySub
	for _, s := range m.subs[collection] {
		if s.filter.Matches(row) {
			targets = append(targets, s)
		}
	}
	m.mu.Unlock()

	for _, s := range targets {
		s.enqueue(row.Clone())
	}
	return row.Clone(), nil
}

func (m *Memory) checkUniqueLocked(collection string, row Record) error {
	return m.conflictLocked(collection, row, m.rows[collection])
}

// conflictLocked reports ErrUniqueness when row collides with any of others
// on id or a declared unique key.
func (m *Memory) conflictLocked(collection string, row Record, others []Record) error {
	keys := [][]string{{"id"}}
	keys = append(keys, m.unique[collection]...)

	for _, cols := range keys {
		f := make(Filter, 0, len(cols))
		for _, c := range cols {
			f = append(f, Eq(c, row[c]))
		}
		for _, existing := range others {
			if f.Matches(existing) {
				return fmt.Errorf("%w: %s(%s)", ErrUniqueness, collection, strings.Join(cols, ", "))
			}
		}
	}
	return nil
}

// Update applies patch to every matching row. Unique keys are checked
// against the resulting rows first; on conflict nothing is changed.
func (m *Memory) Update(_ context.Context, collection string, f Filter, patch Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	var (
		matched []int
		patched []Record
		others  []Record
	)
	for i, r := range m.rows[collection] {
		if !f.Matches(r) {
			others = append(others, r)
			continue
		}
		next := r.Clone()
		for k, v := range patch {
			next[k] = v
		}
		matched = append(matched, i)
		patched = append(patched, next)
	}
	if len(matched) == 0 {
		return ErrNotFound
	}

	for i, row := range patched {
		if err := m.conflictLocked(collection, row, others); err != nil {
			return err
		}
		if err := m.conflictLocked(collection, row, patched[i+1:]); err != nil {
			return err
		}
	}

	for j, i := range matched {
		m.rows[collection][i] = patched[j]
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection string, f Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	rows := m.rows[collection]
	kept := rows[:0]
	for _, r := range rows {
		if !f.Matches(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rows) {
		return ErrNotFound
	}
	clear(rows[len(kept):])
	m.rows[collection] = kept
	return nil
}

func (m *Memory) Increment(_ context.Context, collection string, f Filter, column string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	matched := false
	for _, r := range m.rows[collection] {
		if f.Matches(r) {
			r[column] = r.Int64(column) + delta
			matched = true
		}
	}
	if !matched {
		return ErrNotFound
	}
	return nil
}

func (m *Memory) SubscribeInserts(ctx context.Context, collection string, f Filter, fn func(Record)) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	s := newMemorySub(f, fn)
	s.detach = func() { m.removeSub(collection, s) }
	m.subs[collection] = append(m.subs[collection], s)

	go s.run(ctx)
	return s, nil
}

func (m *Memory) removeSub(collection string, s *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[collection] = slices.DeleteFunc(m.subs[collection], func(x *memorySub) bool { return x == s })
}

// Close stops every subscription. Further calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	var all []*memorySub
	for _, subs := range m.subs {
		all = append(all, subs...)
	}
	m.subs = make(map[string][]*memorySub)
	m.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
	return nil
}

// memorySub delivers queued records in insertion order on its own goroutine.
type memorySub struct {
	filter Filter
	fn     func(Record)
	detach func()

	mu      sync.Mutex
	queue   []Record
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newMemorySub(f Filter, fn func(Record)) *memorySub {
	return &memorySub{
		filter:  f,
		fn:      fn,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *memorySub) enqueue(r Record) {
	s.mu.Lock()
	s.queue = append(s.queue, r)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySub) run(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.detachOnce()
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			r := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(r)
		}
	}
}

func (s *memorySub) detachOnce() {
	s.once.Do(func() {
		close(s.done)
		if s.detach != nil {
			s.detach()
		}
	})
}

func (s *memorySub) stop() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

// Unsubscribe implements Subscription.
func (s *memorySub) Unsubscribe() {
	s.detachOnce()
	<-s.stopped
}
