package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives instrumentation events from the homepage components.
type Recorder interface {
	// FeedState marks state as the single current live feed state.
	FeedState(state string)
	StreamMessage()
	MalformedMessage()
	Reconnect()
	PollResult(err error)
	Submission(class, outcome string)
	LikeToggled(liked bool)
}

// FeedStates lists every value FeedState may receive.
var FeedStates = []string{"connecting", "streaming", "degraded", "polling", "stopped"}

// Prometheus is a Recorder backed by a Prometheus registry.
type Prometheus struct {
	feedState      *prometheus.GaugeVec
	streamMessages prometheus.Counter
	malformed      prometheus.Counter
	reconnects     prometheus.Counter
	polls          *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	likeToggles    *prometheus.CounterVec
	gatherer       prometheus.Gatherer
}

// New registers the homepage metrics with reg.
func New(reg *prometheus.Registry) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		feedState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "homepage_feed_state",
			Help: "Current live feed state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),

		streamMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "homepage_feed_stream_messages_total",
			Help: "Ticker messages received on the streaming connection",
		}),

		malformed: f.NewCounter(prometheus.CounterOpts{
			Name: "homepage_feed_malformed_messages_total",
			Help: "Stream messages dropped because they could not be parsed",
		}),

		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "homepage_feed_reconnects_total",
			Help: "Scheduled streaming reconnect attempts",
		}),

		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homepage_feed_polls_total",
			Help: "Fallback batch price fetches by result",
		}, []string{"result"}),

		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homepage_submissions_total",
			Help: "Rate-limited submissions by action class and outcome",
		}, []string{"class", "outcome"}),

		likeToggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homepage_like_toggles_total",
			Help: "Like toggles by resulting state",
		}, []string{"state"}),

		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prometheus) FeedState(state string) {
	for _, s := range FeedStates {
		v := 0.0
		if s == state {
			v = 1
		}
		p.feedState.WithLabelValues(s).Set(v)
	}
}

func (p *Prometheus) StreamMessage() {
	p.streamMessages.Inc()
}

func (p *Prometheus) MalformedMessage() {
	p.malformed.Inc()
}

func (p *Prometheus) Reconnect() {
	p.reconnects.Inc()
}

func (p *Prometheus) PollResult(err error) {
	if err != nil {
		p.polls.WithLabelValues("error").Inc()
		return
	}
	p.polls.WithLabelValues("ok").Inc()
}

func (p *Prometheus) Submission(class, outcome string) {
	p.submissions.WithLabelValues(class, outcome).Inc()
}

func (p *Prometheus) LikeToggled(liked bool) {
	state := "unliked"
	if liked {
		state = "liked"
	}
	p.likeToggles.WithLabelValues(state).Inc()
}

// Noop returns a Recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) FeedState(_ string)     {}
func (noopRecorder) StreamMessage()         {}
func (noopRecorder) MalformedMessage()      {}
func (noopRecorder) Reconnect()             {}
func (noopRecorder) PollResult(_ error)     {}
func (noopRecorder) Submission(_, _ string) {}
func (noopRecorder) LikeToggled(_ bool)     {}
