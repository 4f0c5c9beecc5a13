package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/connection"
	"github.com/rickgao/homepage/internal/metrics"
	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/poller"
)

// TransportError describes a stream or poll failure. It only ever changes the
// feed status; it is never fatal.
type TransportError struct {
	Op  string // "dial", "read" or "poll"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("price feed %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Stream is an open market-data connection.
type Stream interface {
	Messages() <-chan connection.TimestampedMessage
	Errors() <-chan error
	Close() error
}

// StreamDialer opens a Stream.
type StreamDialer func(ctx context.Context) (Stream, error)

// DialWebSocket returns a StreamDialer backed by connection.Client.
func DialWebSocket(cfg connection.ClientConfig, logger *slog.Logger) StreamDialer {
	return func(ctx context.Context) (Stream, error) {
		c := connection.NewClient(cfg, logger)
		if err := c.Connect(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}
}

// UpdateKind says which field of an Update is set.
type UpdateKind int

const (
	UpdatePrice UpdateKind = iota
	UpdateStatus
	UpdateError
)

// Update is delivered to subscribers.
type Update struct {
	Kind     UpdateKind
	Snapshot model.PriceSnapshot // UpdatePrice
	Status   Status              // every kind
	Err      error               // UpdateError, a *TransportError
}

// Config holds feed configuration.
type Config struct {
	Symbols        []string
	ReconnectDelay time.Duration // Fixed wait before each reconnect (default: 5s)
	MaxReconnects  int           // Failures tolerated before polling (default: 3)
	PollInterval   time.Duration // Fallback poll cadence (default: 5s)
	FlashWindow    time.Duration // How long a direction stays set (default: 2s)
	RequestTimeout time.Duration // Per poll request (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay: 5 * time.Second,
		MaxReconnects:  3,
		PollInterval:   5 * time.Second,
		FlashWindow:    2 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Deps are the collaborators of a Client.
type Deps struct {
	Dial    StreamDialer
	Source  poller.Source
	Clock   clock.Clock      // default: wall clock
	Metrics metrics.Recorder // default: noop
}

// Client maintains the live price feed for a fixed set of symbols.
type Client struct {
	cfg     Config
	dial    StreamDialer
	source  poller.Source
	clock   clock.Clock
	metrics metrics.Recorder
	logger  *slog.Logger
	board   *board

	mu     sync.Mutex
	status Status

	// deliverMu serializes subscriber callbacks; stopped is set under it.
	deliverMu sync.Mutex
	subs      []*subscriber
	nextSub   int
	stopped   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type subscriber struct {
	id int
	fn func(Update)
}

// New creates a Client. Call Start to begin streaming.
func New(cfg Config, deps Deps, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaults.ReconnectDelay
	}
	if cfg.MaxReconnects < 0 {
		cfg.MaxReconnects = defaults.MaxReconnects
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.FlashWindow <= 0 {
		cfg.FlashWindow = defaults.FlashWindow
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop()
	}

	c := &Client{
		cfg:     cfg,
		dial:    deps.Dial,
		source:  deps.Source,
		clock:   deps.Clock,
		metrics: deps.Metrics,
		logger:  logger,
		status:  Initial,
	}
	c.board = newBoard(deps.Clock, cfg.FlashWindow, func(s model.PriceSnapshot) {
		c.deliver(Update{Kind: UpdatePrice, Snapshot: s, Status: c.Status()})
	})
	return c
}

// Start begins connecting in the background.
func (c *Client) Start(ctx context.Context) error {
	if c.dial == nil {
		return errors.New("feed: no stream dialer")
	}
	if c.source == nil {
		return errors.New("feed: no poll source")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.metrics.FeedState(c.Status().State.String())

	c.wg.Add(1)
	go c.run(runCtx)

	c.logger.Info("price feed started", "symbols", c.cfg.Symbols)
	return nil
}

// Stop closes the connection, cancels every timer and waits for the
// background work to end. No subscriber is called after Stop returns.
func (c *Client) Stop(ctx context.Context) error {
	c.deliverMu.Lock()
	c.stopped = true
	c.subs = nil
	c.deliverMu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.board.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	c.status, _ = Next(c.status, EventStop, c.cfg.MaxReconnects)
	c.mu.Unlock()
	c.metrics.FeedState(StateStopped.String())

	c.logger.Info("price feed stopped")
	return nil
}

// Subscribe registers fn for every update. The returned function removes it.
// fn must not call Stop.
func (c *Client) Subscribe(fn func(Update)) (cancel func()) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.stopped {
		return func() {}
	}

	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, &subscriber{id: id, fn: fn})

	return func() {
		c.deliverMu.Lock()
		defer c.deliverMu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s *subscriber) bool { return s.id == id })
	}
}

// Status returns the current feed status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Prices returns the latest snapshot per symbol.
func (c *Client) Prices() map[string]model.PriceSnapshot {
	return c.board.Snapshot()
}

func (c *Client) deliver(u Update) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.stopped {
		return
	}
	for _, s := range c.subs {
		s.fn(u)
	}
}

// fire applies ev to the state machine and announces the new status.
func (c *Client) fire(ev Event) Action {
	c.mu.Lock()
	prev := c.status
	next, act := Next(prev, ev, c.cfg.MaxReconnects)
	c.status = next
	c.mu.Unlock()

	if next != prev {
		c.logger.Debug("price feed transition", "from", prev.String(), "event", ev.String(), "to", next.String())
		c.metrics.FeedState(next.State.String())
		c.deliver(Update{Kind: UpdateStatus, Status: next})
	}
	return act
}

func (c *Client) reportError(op string, err error) {
	if err == nil {
		err = errors.New("connection closed")
	}
	terr := &TransportError{Op: op, Err: err}
	c.deliver(Update{Kind: UpdateError, Status: c.Status(), Err: terr})
}

// run executes the actions the state machine asks for until ctx ends.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	act := ActionOpenStream
	for ctx.Err() == nil {
		switch act {
		case ActionOpenStream:
			act = c.openStream(ctx)
		case ActionScheduleReconnect:
			act = c.waitReconnect(ctx)
		case ActionStartPolling:
			c.poll(ctx)
			return
		default:
			return
		}
	}
}

func (c *Client) openStream(ctx context.Context) Action {
	s, err := c.dial(ctx)
	if ctx.Err() != nil {
		if s != nil {
			s.Close()
		}
		return ActionNone
	}
	if err != nil {
		c.logger.Warn("price stream connect failed", "error", err)
		c.reportError("dial", err)
		return c.fire(EventConnectFailed)
	}

	c.fire(EventConnected)
	c.logger.Info("price stream connected")

	err = c.consume(ctx, s)
	s.Close()
	if ctx.Err() != nil {
		return ActionNone
	}

	c.logger.Warn("price stream closed", "error", err)
	c.reportError("read", err)
	return c.fire(EventClosed)
}

// consume reads frames until the stream fails or ctx ends.
func (c *Client) consume(ctx context.Context, s Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.Errors():
			return err
		case msg := <-s.Messages():
			c.handleFrame(msg.Data)
		}
	}
}

func (c *Client) handleFrame(data []byte) {
	t, err := ParseStreamMessage(data)
	if err != nil {
		c.metrics.MalformedMessage()
		c.logger.Warn("dropping malformed price message", "error", err, "bytes", len(data))
		return
	}
	c.metrics.StreamMessage()
	c.board.Apply(t)
}

func (c *Client) waitReconnect(ctx context.Context) Action {
	st := c.Status()
	c.metrics.Reconnect()
	c.logger.Info("scheduling price stream reconnect",
		"attempt", st.Failures,
		"delay", c.cfg.ReconnectDelay,
	)

	elapsed := make(chan struct{}, 1)
	timer := c.clock.AfterFunc(c.cfg.ReconnectDelay, func() {
		elapsed <- struct{}{}
	})

	select {
	case <-ctx.Done():
		timer.Stop()
		return ActionNone
	case <-elapsed:
		return c.fire(EventRetryElapsed)
	}
}

// poll runs the fallback poller until ctx ends. Streaming is never retried.
func (c *Client) poll(ctx context.Context) {
	c.logger.Warn("price stream abandoned, polling", "interval", c.cfg.PollInterval)

	p := poller.New(poller.Config{
		Symbols:  c.cfg.Symbols,
		Interval: c.cfg.PollInterval,
		Timeout:  c.cfg.RequestTimeout,
	}, c.source, poller.HandlerFuncs{
		Tickers: func(ts []model.Ticker) {
			c.metrics.PollResult(nil)
			for _, t := range ts {
				c.board.Apply(t)
			}
		},
		Error: func(err error) {
			c.metrics.PollResult(err)
			c.reportError("poll", err)
		},
	}, c.clock, c.logger)

	p.Start(ctx)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		c.logger.Warn("price poller did not stop", "error", err)
	}
}
