package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/model"
)

// Source fetches the latest tickers for a batch of symbols.
type Source interface {
	GetTickers24h(ctx context.Context, symbols []string) ([]model.Ticker, error)
}

// Handler receives poll results. Calls are serialized on the poller goroutine.
type Handler interface {
	HandleTickers(tickers []model.Ticker)
	HandleError(err error)
}

// HandlerFuncs adapts a pair of functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Tickers func([]model.Ticker)
	Error   func(error)
}

func (h HandlerFuncs) HandleTickers(t []model.Ticker) {
	if h.Tickers != nil {
		h.Tickers(t)
	}
}

func (h HandlerFuncs) HandleError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// Config holds poller configuration.
type Config struct {
	Symbols  []string
	Interval time.Duration // Poll interval (default: 5s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically fetches tickers via the REST API.
type Poller struct {
	cfg     Config
	source  Source
	handler Handler
	clock   clock.Clock
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	ticker clock.Ticker
	wg     sync.WaitGroup
}

// New creates a new Poller. A nil clock means the wall clock.
func New(cfg Config, source Source, handler Handler, clk clock.Clock, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		clock:   clk,
		logger:  logger,
	}
}

// Start begins the polling loop. The first fetch happens right away.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.ticker = p.clock.NewTicker(p.cfg.Interval)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("price poller started",
		"interval", p.cfg.Interval,
		"symbols", len(p.cfg.Symbols),
	)

	return nil
}

// Stop shuts down the poller. No handler call happens after Stop returns.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("price poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()
	defer p.ticker.Stop()

	// Poll immediately on start.
	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.ticker.C():
			p.pollOnce()
		}
	}
}

// pollOnce fetches every symbol and hands the result to the handler.
func (p *Poller) pollOnce() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	tickers, err := p.source.GetTickers24h(ctx, p.cfg.Symbols)
	if p.ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("price poll failed", "error", err)
		p.handler.HandleError(err)
		return
	}

	p.logger.Debug("price poll complete", "tickers", len(tickers))
	p.handler.HandleTickers(tickers)
}
