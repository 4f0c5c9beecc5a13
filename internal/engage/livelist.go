package engage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

// LiveList is a newest-first list of entries kept current from insert
// notifications and periodic re-queries. An entry id appears at most once.
//
// The store is authoritative: Refresh drops every entry the query did not
// return, except entries merged after that Refresh began, whose insert may
// have raced the query.
type LiveList struct {
	st         store.Store
	collection string
	query      store.Query
	onChange   func([]model.Entry)
	logger     *slog.Logger

	mu     sync.Mutex
	items  []model.Entry
	gen    uint64               // bumped at the start of every Refresh
	merged map[uuid.UUID]uint64 // id -> gen at Merge, until a Refresh settles it

	sub    store.Subscription
	ticker clock.Ticker
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type liveListConfig struct {
	Store      store.Store
	Collection string
	Filter     store.Filter
	Limit      int
	Clock      clock.Clock
	Interval   time.Duration // 0 disables periodic reconciliation
	OnChange   func([]model.Entry)
	Logger     *slog.Logger
}

// startLiveList performs the initial query, then subscribes to inserts and
// starts reconciliation. OnChange receives a fresh copy on every change.
func startLiveList(ctx context.Context, cfg liveListConfig) (*LiveList, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func([]model.Entry) {}
	}

	l := &LiveList{
		st:         cfg.Store,
		collection: cfg.Collection,
		query:      store.Query{Filter: cfg.Filter, Order: store.NewestFirst, Limit: cfg.Limit},
		onChange:   cfg.OnChange,
		logger:     cfg.Logger,
		merged:     make(map[uuid.UUID]uint64),
	}

	if err := l.Refresh(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	sub, err := cfg.Store.SubscribeInserts(runCtx, cfg.Collection, cfg.Filter, func(r store.Record) {
		l.Merge(entryFromRecord(r))
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Collection, err)
	}
	l.sub = sub

	if cfg.Interval > 0 && cfg.Clock != nil {
		l.ticker = cfg.Clock.NewTicker(cfg.Interval)
		l.wg.Add(1)
		go l.reconcileLoop(runCtx)
	}

	return l, nil
}

func (l *LiveList) reconcileLoop(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.ticker.C():
			if err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
				l.logger.Warn("live list refresh failed", "collection", l.collection, "error", err)
			}
		}
	}
}

// Merge adds e unless an entry with the same id is already present.
// It reports whether the list changed.
func (l *LiveList) Merge(e model.Entry) bool {
	l.mu.Lock()
	if slices.ContainsFunc(l.items, func(x model.Entry) bool { return x.ID == e.ID }) {
		l.mu.Unlock()
		return false
	}
	i, _ := slices.BinarySearchFunc(l.items, e, newestFirst)
	l.items = slices.Insert(l.items, i, e)
	l.merged[e.ID] = l.gen
	if l.query.Limit > 0 && len(l.items) > l.query.Limit {
		l.items = l.items[:l.query.Limit]
	}
	snap := slices.Clone(l.items)
	l.mu.Unlock()

	l.onChange(snap)
	return true
}

// Refresh replaces the list with the store's current contents. Entries merged
// while the query was in flight are kept; anything older that the query did
// not return has been deleted or never reached the store, and is dropped.
func (l *LiveList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	started := l.gen
	l.mu.Unlock()

	rs, err := l.st.Query(ctx, l.collection, l.query)
	if err != nil {
		return fmt.Errorf("query %s: %w", l.collection, err)
	}
	fresh := entriesFromRecords(rs)

	l.mu.Lock()
	seen := make(map[uuid.UUID]struct{}, len(fresh))
	for _, e := range fresh {
		seen[e.ID] = struct{}{}
	}
	for _, e := range l.items {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		if gen, ok := l.merged[e.ID]; ok && gen >= started {
			fresh = append(fresh, e)
			seen[e.ID] = struct{}{}
		}
	}
	for id, gen := range l.merged {
		if gen < started {
			delete(l.merged, id)
		}
	}
	slices.SortFunc(fresh, newestFirst)
	if l.query.Limit > 0 && len(fresh) > l.query.Limit {
		fresh = fresh[:l.query.Limit]
	}
	l.items = fresh
	snap := slices.Clone(fresh)
	l.mu.Unlock()

	l.onChange(snap)
	return nil
}

// Items returns a copy of the current entries, newest first.
func (l *LiveList) Items() []model.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Close stops notifications and reconciliation. It is safe to call more than once.
func (l *LiveList) Close() {
	l.once.Do(func() {
		if l.cancel != nil {
			l.cancel()
		}
		if l.sub != nil {
			l.sub.Unsubscribe()
		}
		if l.ticker != nil {
			l.ticker.Stop()
		}
		l.wg.Wait()
	})
}

func newestFirst(a, b model.Entry) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}
