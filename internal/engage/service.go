package engage

import (
	"log/slog"
	"time"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/localstate"
	"github.com/rickgao/homepage/internal/metrics"
	"github.com/rickgao/homepage/internal/store"
	"github.com/rickgao/homepage/internal/submit"
)

// Deps are the collaborators shared by every engagement feature.
type Deps struct {
	Store     store.Store
	State     localstate.Store
	Submitter *submit.Submitter
	Clock     clock.Clock
	Metrics   metrics.Recorder
	Logger    *slog.Logger

	// ReconcileInterval is how often live lists re-query the store. 0 disables it.
	ReconcileInterval time.Duration
}

// Service bundles the engagement features.
type Service struct {
	Posts     *Posts
	Comments  *Comments
	Guestbook *Guestbook
	Likes     *Likes
	Views     *Views
	Dashboard *Dashboard

	// Submitter reports cooldown availability for the countdown display.
	Submitter *submit.Submitter
}

// New wires every feature from deps.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop()
	}
	if deps.Submitter == nil {
		deps.Submitter = submit.New(deps.State, deps.Clock,
			submit.WithLogger(deps.Logger),
			submit.WithMetrics(deps.Metrics),
		)
	}

	likes := &Likes{deps: deps}
	comments := &Comments{deps: deps}
	return &Service{
		Posts:     &Posts{deps: deps, comments: comments, likes: likes},
		Comments:  comments,
		Guestbook: &Guestbook{deps: deps},
		Likes:     likes,
		Views:     &Views{deps: deps},
		Dashboard: &Dashboard{deps: deps},
		Submitter: deps.Submitter,
	}
}
