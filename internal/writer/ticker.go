package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/model"
)

// Tick is one recorded price observation.
type Tick struct {
	Symbol           string
	Price            decimal.Decimal
	ChangePercent24h decimal.Decimal
	ObservedAt       time.Time
}

// Sink persists a batch of ticks and reports how many rows were new.
type Sink interface {
	InsertTicks(ctx context.Context, ticks []Tick) (inserted int, err error)
}

// Config holds batching settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns the default batching settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
	}
}

// Stats counts writer outcomes.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64 // snapshots recorded after Stop
	Skipped   int64 // republished observations, e.g. a direction reset
}

// TickWriter batches price snapshots into a Sink.
type TickWriter struct {
	cfg    Config
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger

	input *Queue[Tick]
	full  chan struct{}

	lastMu sync.Mutex
	last   map[string]time.Time // symbol -> ObservedAt of the last queued tick

	flushMu sync.Mutex // serializes flushes so batches stay in order

	statsMu sync.Mutex
	stats   Stats

	ticker clock.Ticker
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickWriter creates a TickWriter. Zero config fields take DefaultConfig values.
func NewTickWriter(cfg Config, sink Sink, clk clock.Clock, logger *slog.Logger) *TickWriter {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TickWriter{
		cfg:    cfg,
		sink:   sink,
		clock:  clk,
		logger: logger,
		input:  NewQueue[Tick](cfg.BatchSize),
		full:   make(chan struct{}, 1),
		last:   make(map[string]time.Time),
	}
}

// Record queues a snapshot. It never blocks; it returns false once the
// writer has stopped or when s repeats the symbol's last observation, which
// is how the feed republishes a price whose direction flash ended.
func (w *TickWriter) Record(s model.PriceSnapshot) bool {
	w.lastMu.Lock()
	if prev, ok := w.last[s.Symbol]; ok && prev.Equal(s.UpdatedAt) {
		w.lastMu.Unlock()
		w.statsMu.Lock()
		w.stats.Skipped++
		w.statsMu.Unlock()
		return false
	}
	w.last[s.Symbol] = s.UpdatedAt
	w.lastMu.Unlock()

	ok := w.input.Push(Tick{
		Symbol:           s.Symbol,
		Price:            s.Price,
		ChangePercent24h: s.ChangePercent24h,
		ObservedAt:       s.UpdatedAt,
	})
	if !ok {
		w.statsMu.Lock()
		w.stats.Dropped++
		w.statsMu.Unlock()
		return false
	}

	if w.input.Len() >= w.cfg.BatchSize {
		select {
		case w.full <- struct{}{}:
		default:
		}
	}
	return true
}

// Start begins periodic flushing.
func (w *TickWriter) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.ticker = w.clock.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop(ctx)

	w.logger.Info("tick writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop halts the flush loop and writes whatever is still queued using ctx.
func (w *TickWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping tick writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.ticker != nil {
		w.ticker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("tick writer stop timed out")
		return ctx.Err()
	}

	w.flush(ctx)
	w.logger.Info("tick writer stopped")
	return nil
}

// Stats returns current counters.
func (w *TickWriter) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

func (w *TickWriter) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ticker.C():
			w.flush(ctx)
		case <-w.full:
			w.flush(ctx)
		}
	}
}

// flush writes queued ticks in BatchSize chunks. A failed chunk is dropped.
func (w *TickWriter) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	for {
		batch := w.input.Drain(w.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}

		start := w.clock.Now()
		inserted, err := w.sink.InsertTicks(ctx, batch)

		w.statsMu.Lock()
		if err != nil {
			w.stats.Errors++
		} else {
			w.stats.Inserts += int64(inserted)
			w.stats.Conflicts += int64(len(batch) - inserted)
			w.stats.Flushes++
		}
		w.statsMu.Unlock()

		if err != nil {
			w.logger.Error("batch insert failed", "error", err, "count", len(batch))
			continue
		}
		w.logger.Debug("flushed ticks",
			"count", len(batch),
			"conflicts", len(batch)-inserted,
			"duration", w.clock.Now().Sub(start),
		)
	}
}
