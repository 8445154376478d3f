// Package metrics exposes trial counters and timings to prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rapidrate"

type Metrics struct {
	registry *prometheus.Registry

	trialsCreated   prometheus.Counter
	trialsFinalized *prometheus.CounterVec
	submitsRejected *prometheus.CounterVec
	commits         *prometheus.CounterVec
	eventsThrottled prometheus.Counter
	reactionTime    prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		trialsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_created_total",
			Help:      "Trials created.",
		}),
		trialsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_finalized_total",
			Help:      "Trials finalized, by the trigger that finalized them.",
		}, []string{"trigger"}),
		submitsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submits_rejected_total",
			Help:      "Submission attempts rejected because required items were unrated.",
		}, []string{"trigger"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Logged rating commits, by rating kind.",
		}, []string{"kind"}),
		eventsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_throttled_total",
			Help:      "Participant requests refused by the per-trial rate limit.",
		}),
		reactionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaction_time_seconds",
			Help:      "Time from layout to finalize.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
	}
	m.registry.MustRegister(
		m.trialsCreated, m.trialsFinalized, m.submitsRejected,
		m.commits, m.eventsThrottled, m.reactionTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TrialCreated() {
	if m == nil {
		return
	}
	m.trialsCreated.Inc()
}

func (m *Metrics) TrialFinalized(trigger string, rtMs int64) {
	if m == nil {
		return
	}
	m.trialsFinalized.WithLabelValues(trigger).Inc()
	m.reactionTime.Observe(float64(rtMs) / 1000)
}

func (m *Metrics) SubmitRejected(trigger string) {
	if m == nil {
		return
	}
	m.submitsRejected.WithLabelValues(trigger).Inc()
}

func (m *Metrics) CommitRecorded(kind string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(kind).Inc()
}

func (m *Metrics) EventThrottled() {
	if m == nil {
		return
	}
	m.eventsThrottled.Inc()
}
