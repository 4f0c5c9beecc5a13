package feed

import (
	"maps"
	"sync"
	"time"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/model"
)

// board holds the latest snapshot per symbol and clears each symbol's
// direction flash after the window. A newer change replaces the pending
// reset for that symbol; resets never stack.
type board struct {
	clock   clock.Clock
	window  time.Duration
	publish func(model.PriceSnapshot)

	// pubMu keeps publishes in mutation order without holding mu during callbacks.
	pubMu sync.Mutex

	mu     sync.Mutex
	prices map[string]model.PriceSnapshot
	resets map[string]clock.Timer
	gen    map[string]uint64
	closed bool
}

func newBoard(clk clock.Clock, window time.Duration, publish func(model.PriceSnapshot)) *board {
	if publish == nil {
		publish = func(model.PriceSnapshot) {}
	}
	return &board{
		clock:   clk,
		window:  window,
		publish: publish,
		prices:  make(map[string]model.PriceSnapshot),
		resets:  make(map[string]clock.Timer),
		gen:     make(map[string]uint64),
	}
}

// Apply records t and publishes the resulting snapshot.
func (b *board) Apply(t model.Ticker) (model.PriceSnapshot, bool) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return model.PriceSnapshot{}, false
	}

	prev, seen := b.prices[t.Symbol]
	snap := model.PriceSnapshot{
		Symbol:           t.Symbol,
		Price:            t.LastPrice,
		ChangePercent24h: t.PercentChange24h,
		Direction:        prev.Direction,
		UpdatedAt:        b.clock.Now(),
	}

	if seen && !prev.Price.Equal(t.LastPrice) {
		if t.LastPrice.GreaterThan(prev.Price) {
			snap.Direction = model.DirectionUp
		} else {
			snap.Direction = model.DirectionDown
		}
		b.scheduleResetLocked(t.Symbol)
	}

	b.prices[t.Symbol] = snap
	b.mu.Unlock()

	b.publish(snap)
	return snap, true
}

func (b *board) scheduleResetLocked(symbol string) {
	if timer, ok := b.resets[symbol]; ok {
		timer.Stop()
	}
	b.gen[symbol]++
	g := b.gen[symbol]
	b.resets[symbol] = b.clock.AfterFunc(b.window, func() {
		b.clearDirection(symbol, g)
	})
}

// clearDirection runs when a flash window ends. A stale generation means a
// newer change already replaced this reset.
func (b *board) clearDirection(symbol string, g uint64) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	if b.closed || b.gen[symbol] != g {
		b.mu.Unlock()
		return
	}
	delete(b.resets, symbol)
	snap := b.prices[symbol]
	snap.Direction = model.DirectionNone
	b.prices[symbol] = snap
	b.mu.Unlock()

	b.publish(snap)
}

// Snapshot returns a copy of every symbol's latest state.
func (b *board) Snapshot() map[string]model.PriceSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.prices)
}

// pending reports how many direction resets are scheduled.
func (b *board) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.resets)
}

// Close cancels every pending reset. Later Apply calls are ignored.
func (b *board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for sym, timer := range b.resets {
		timer.Stop()
		delete(b.resets, sym)
	}
}
