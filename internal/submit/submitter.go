// Package submit gates visitor text submissions (comments, guestbook messages)
// behind a fixed per-action-class cooldown kept in client-local state.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/localstate"
	"github.com/rickgao/homepage/internal/metrics"
	"github.com/rickgao/homepage/internal/model"
)

// Cooldown is the minimum time between two successful submissions of the same action class.
const Cooldown = 30 * time.Second

// ActionClass names an independently rate-limited kind of submission.
type ActionClass string

const (
	ClassComment   ActionClass = "comment-submit"
	ClassGuestbook ActionClass = "guestbook-submit"
)

// StateKey is the local state key holding the class's last successful submit time.
func (c ActionClass) StateKey() string {
	return "last_submit:" + string(c)
}

// Payload is the visitor-supplied text.
type Payload struct {
	Name    string
	Content string
}

// Trimmed returns the payload with surrounding whitespace removed.
func (p Payload) Trimmed() Payload {
	return Payload{
		Name:    strings.TrimSpace(p.Name),
		Content: strings.TrimSpace(p.Content),
	}
}

// Validate rejects empty or whitespace-only fields.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name"}
	}
	if strings.TrimSpace(p.Content) == "" {
		return &ValidationError{Field: "content"}
	}
	return nil
}

// Availability is the cooldown state of one action class.
type Availability struct {
	Allowed          bool
	RemainingSeconds int
}

// WriteFunc performs the underlying store write with an already validated, trimmed payload.
type WriteFunc func(ctx context.Context, p Payload) (model.Entry, error)

// Submitter enforces the cooldown.
type Submitter struct {
	state   localstate.Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics metrics.Recorder
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Submitter) {
		s.metrics = m
	}
}

// New creates a Submitter keeping timestamps in state.
func New(state localstate.Store, clk clock.Clock, opts ...Option) *Submitter {
	s := &Submitter{
		state:   state,
		clock:   clk,
		logger:  slog.Default(),
		metrics: metrics.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanSubmitNow reports whether class is outside its cooldown window. It never writes.
func (s *Submitter) CanSubmitNow(ctx context.Context, class ActionClass) (Availability, error) {
	last, ok, err := s.lastSubmit(ctx, class)
	if err != nil {
		return Availability{}, err
	}
	if !ok {
		return Availability{Allowed: true}, nil
	}

	remaining := remainingSeconds(s.clock.Now().Sub(last))
	return Availability{
		Allowed:          remaining == 0,
		RemainingSeconds: remaining,
	}, nil
}

// Submit validates p, re-checks the cooldown, then calls write. The cooldown
// timestamp is recorded only after write succeeds.
func (s *Submitter) Submit(ctx context.Context, class ActionClass, p Payload, write WriteFunc) (model.Entry, error) {
	if err := p.Validate(); err != nil {
		s.metrics.Submission(string(class), "invalid")
		return model.Entry{}, err
	}

	avail, err := s.CanSubmitNow(ctx, class)
	if err != nil {
		return model.Entry{}, fmt.Errorf("check cooldown: %w", err)
	}
	if !avail.Allowed {
		s.metrics.Submission(string(class), "cooldown")
		return model.Entry{}, &CooldownError{Class: class, RemainingSeconds: avail.RemainingSeconds}
	}

	entry, err := write(ctx, p.Trimmed())
	if err != nil {
		s.metrics.Submission(string(class), "store_error")
		s.logger.Warn("submission failed", "class", class, "error", err)
		return model.Entry{}, &StoreError{Class: class, Err: err}
	}

	stamp := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
	if err := s.state.Set(ctx, class.StateKey(), stamp); err != nil {
		// The write already happened; losing the stamp only shortens this cooldown.
		s.logger.Warn("failed to record cooldown", "class", class, "error", err)
	}

	s.metrics.Submission(string(class), "ok")
	return entry, nil
}

func (s *Submitter) lastSubmit(ctx context.Context, class ActionClass) (time.Time, bool, error) {
	raw, ok, err := s.state.Get(ctx, class.StateKey())
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cooldown state: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn("ignoring unreadable cooldown timestamp", "class", class, "value", raw)
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// remainingSeconds is ceil((Cooldown - elapsed) / 1s), clamped to [0, Cooldown].
// A negative elapsed (clock moved backwards) counts as a full window.
func remainingSeconds(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	left := Cooldown - elapsed
	if left <= 0 {
		return 0
	}
	secs := left / time.Second
	if left%time.Second != 0 {
		secs++
	}
	return int(secs)
}

// IsCooldown reports whether err is a CooldownError and returns it.
func IsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
