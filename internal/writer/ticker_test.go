package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memSink dedups on (symbol, observed_at) like the table's unique key.
type memSink struct {
	mu      sync.Mutex
	seen    map[string]bool
	batches [][]Tick
	fail    error
}

func newMemSink() *memSink {
	return &memSink{seen: make(map[string]bool)}
}

func (s *memSink) InsertTicks(_ context.Context, ticks []Tick) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		err := s.fail
		s.fail = nil
		return 0, err
	}
	s.batches = append(s.batches, ticks)
	n := 0
	for _, t := range ticks {
		key := t.Symbol + "@" + t.ObservedAt.String()
		if !s.seen[key] {
			s.seen[key] = true
			n++
		}
	}
	return n, nil
}

func (s *memSink) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.batches))
	for i, b := range s.batches {
		out[i] = len(b)
	}
	return out
}

func eventually(t *testing.T, cond func() bool, msg string) {
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

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func snap(symbol string, price string, at time.Duration) model.PriceSnapshot {
	return model.PriceSnapshot{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		UpdatedAt: t0.Add(at),
	}
}

func stop(t *testing.T, w *TickWriter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestTickWriter_FlushesOnInterval(t *testing.T) {
	clk := clock.NewFake(t0)
	sink := newMemSink()
	w := NewTickWriter(Config{BatchSize: 10, FlushInterval: 5 * time.Second}, sink, clk, nil)
	w.Start(context.Background())
	defer stop(t, w)

	w.Record(snap("BTCUSDT", "67000", 0))
	w.Record(snap("ETHUSDT", "3500", 0))

	if got := sink.batchSizes(); len(got) != 0 {
		t.Fatalf("flushed before interval: %v", got)
	}

	clk.Advance(5 * time.Second)
	eventually(t, func() bool { return w.Stats().Flushes == 1 }, "no flush after interval")

	if got := sink.batchSizes(); len(got) != 1 || got[0] != 2 {
		t.Errorf("batches = %v, want [2]", got)
	}
	if s := w.Stats(); s.Inserts != 2 || s.Conflicts != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestTickWriter_FlushesWhenBatchFull(t *testing.T) {
	clk := clock.NewFake(t0)
	sink := newMemSink()
	w := NewTickWriter(Config{BatchSize: 3, FlushInterval: time.Hour}, sink, clk, nil)
	w.Start(context.Background())
	defer stop(t, w)

	for i := range 3 {
		w.Record(snap("BTCUSDT", "67000", time.Duration(i)*time.Second))
	}

	eventually(t, func() bool { return w.Stats().Inserts == 3 }, "full batch not flushed")
}

func TestTickWriter_SkipsRepublishedObservation(t *testing.T) {
	clk := clock.NewFake(t0)
	sink := newMemSink()
	w := NewTickWriter(Config{BatchSize: 10, FlushInterval: time.Second}, sink, clk, nil)
	w.Start(context.Background())
	defer stop(t, w)

	up := snap("BTCUSDT", "67000", 0)
	up.Direction = model.DirectionUp
	cleared := up
	cleared.Direction = model.DirectionNone

	if !w.Record(up) {
		t.Fatal("first observation was not queued")
	}
	// The direction reset republishes the same observation.
	if w.Record(cleared) {
		t.Error("direction reset was queued as a new observation")
	}
	if !w.Record(snap("ETHUSDT", "3500", 0)) {
		t.Error("same time on another symbol was skipped")
	}
	if !w.Record(snap("BTCUSDT", "67000", time.Second)) {
		t.Error("unchanged price at a later time was skipped")
	}

	clk.Advance(time.Second)
	eventually(t, func() bool { return w.Stats().Flushes == 1 }, "no flush")

	if s := w.Stats(); s.Inserts != 3 || s.Conflicts != 0 || s.Skipped != 1 {
		t.Errorf("stats = %+v, want 3 inserts, 0 conflicts, 1 skipped", s)
	}
}

func TestTickWriter_CountsConflicts(t *testing.T) {
	clk := clock.NewFake(t0)
	sink := newMemSink()
	// A row left by an earlier session.
	sink.seen["BTCUSDT@"+t0.String()] = true
	w := NewTickWriter(Config{BatchSize: 10, FlushInterval: time.Second}, sink, clk, nil)
	w.Start(context.Background())
	defer stop(t, w)

	w.Record(snap("BTCUSDT", "67000", 0))
	w.Record(snap("BTCUSDT", "67001", time.Second))

	clk.Advance(time.Second)
	eventually(t, func() bool { return w.Stats().Flushes == 1 }, "no flush")

	if s := w.Stats(); s.Inserts != 1 || s.Conflicts != 1 {
		t.Errorf("stats = %+v, want 1 insert and 1 conflict", s)
	}
}

func TestTickWriter_FailedBatchIsDropped(t *testing.T) {
	clk := clock.NewFake(t0)
	sink := newMemSink()
	sink.fail = errors.New("connection reset")
	w := NewTickWriter(Config{BatchSize: 10, FlushInterval: time.Second}, sink, clk, nil)
	w.Start(context.Background())
	defer stop(t, w)

	w.Record(snap("BTCUSDT", "67000", 0))
	clk.Advance(time.Second)
	eventually(t, func() bool { return w.Stats().Errors == 1 }, "error not counted")

	w.Record(snap("BTCUSDT", "67001", time.Second))
	clk.Advance(time.Second)
	eventually(t, func() bool { return w.Stats().Flushes == 1 }, "writer did not recover")

	if s := w.Stats(); s.Inserts != 1 {
		t.Errorf("Inserts = %d, want 1 (failed batch is not retried)", s.Inserts)
	}
}

func TestTickWriter_StopFlushesRemainder(t *testing.T) {
	clk := clock.NewFake(t0)
	sink := newMemSink()
	w := NewTickWriter(Config{BatchSize: 10, FlushInterval: time.Hour}, sink, clk, nil)
	w.Start(context.Background())

	w.Record(snap("SOLUSDT", "150", 0))
	stop(t, w)

	if s := w.Stats(); s.Inserts != 1 {
		t.Errorf("Inserts = %d, want 1 after Stop", s.Inserts)
	}
	if w.Record(snap("SOLUSDT", "151", time.Second)) {
		t.Error("Record after Stop returned true")
	}
	if s := w.Stats(); s.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", s.Dropped)
	}
	if clk.Waiters() != 0 {
		t.Errorf("%d clock waiters left after Stop", clk.Waiters())
	}
}

func TestNewTickWriter_Defaults(t *testing.T) {
	w := NewTickWriter(Config{}, newMemSink(), nil, nil)

	if w.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", w.cfg, DefaultConfig())
	}
}

func TestTickBatch(t *testing.T) {
	ticks := []Tick{
		{Symbol: "BTCUSDT", Price: decimal.RequireFromString("67012.34"), ObservedAt: t0},
		{Symbol: "ETHUSDT", Price: decimal.RequireFromString("3500.1"), ObservedAt: t0},
	}

	b := tickBatch(ticks)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	q := b.QueuedQueries[1]
	if q.SQL != insertTick {
		t.Errorf("SQL = %q", q.SQL)
	}
	if len(q.Arguments) != 4 || q.Arguments[0] != "ETHUSDT" {
		t.Errorf("Arguments = %v", q.Arguments)
	}
}
