package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "analytics"

// Recorder holds the service's Prometheus collectors. It satisfies
// datalayer.Observer.
type Recorder struct {
	eventsPublished *prometheus.CounterVec
	sinkFailures    *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	sessionsClosed  *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datalayer",
			Name:      "events_published_total",
			Help:      "Analytics events pushed to a data layer, by event name.",
		}, []string{"event"}),
		sinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datalayer",
			Name:      "sink_failures_total",
			Help:      "Failed data layer pushes, by sink.",
		}, []string{"sink"}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Open tracking sessions.",
		}),
		sessionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Closed tracking sessions, by reason.",
		}, []string{"reason"}),
	}
}

func (r *Recorder) EventPublished(name string) {
	r.eventsPublished.WithLabelValues(name).Inc()
}

func (r *Recorder) SinkFailed(sink string) {
	r.sinkFailures.WithLabelValues(sink).Inc()
}

func (r *Recorder) SessionOpened() {
	r.sessionsActive.Inc()
}

func (r *Recorder) SessionClosed(reason string) {
	r.sessionsActive.Dec()
	r.sessionsClosed.WithLabelValues(reason).Inc()
}
