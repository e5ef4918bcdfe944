package metrics

import (
	"fmt"
	"time"

	"github.com/icnasac/icna-events/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "icna_events"

// PrometheusSink implements Sink on Prometheus collectors registered with the
// given Registerer. Registration errors are logged, never returned.
type PrometheusSink struct {
	fetchAttemptsTotal *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	pagesTotal         *prometheus.CounterVec

	eventsTotal          *prometheus.CounterVec
	runsTotal            *prometheus.CounterVec
	lastRunTimestamp     prometheus.Gauge
	lastSuccessTimestamp prometheus.Gauge
	lastRunDuration      prometheus.Gauge
	documentEvents       prometheus.Gauge
}

var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates a sink and registers its collectors with reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initFetchMetrics(reg)
	s.initRunMetrics(reg)
	return s
}

func (s *PrometheusSink) initFetchMetrics(reg prometheus.Registerer) {
	s.fetchAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Total number of listing page requests, including retries.",
	}, []string{"status_class"})

	s.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Listing page request latency in seconds (excludes backoff wait).",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	s.pagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Total number of listing pages by final status.",
	}, []string{"status"})

	s.register(reg, s.fetchAttemptsTotal, "fetch_attempts_total")
	s.register(reg, s.fetchDuration, "fetch_duration_seconds")
	s.register(reg, s.pagesTotal, "pages_total")
}

func (s *PrometheusSink) initRunMetrics(reg prometheus.Registerer) {
	s.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Total number of extracted events by build outcome.",
	}, []string{"outcome"})

	s.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Total number of runs by result.",
	}, []string{"result"})

	s.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run completed.",
	})
	s.lastSuccessTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time the last successful run completed.",
	})
	s.lastRunDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Duration of the last run in seconds.",
	})
	s.documentEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "document_events",
		Help:      "Number of events in the last published document.",
	})

	s.register(reg, s.eventsTotal, "events_total")
	s.register(reg, s.runsTotal, "runs_total")
	s.register(reg, s.lastRunTimestamp, "last_run_timestamp_seconds")
	s.register(reg, s.lastSuccessTimestamp, "last_success_timestamp_seconds")
	s.register(reg, s.lastRunDuration, "last_run_duration_seconds")
	s.register(reg, s.documentEvents, "document_events")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		logger.Warn("Failed to register metric", logger.Fields{
			"metric": fmt.Sprintf("%s_%s", namespace, name),
			"error":  err.Error(),
		})
	}
}

func (s *PrometheusSink) FetchAttempt(statusCode int, err error, duration time.Duration) {
	s.fetchAttemptsTotal.WithLabelValues(ClassifyStatus(statusCode, err)).Inc()
	s.fetchDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) PageCompleted(status string) {
	s.pagesTotal.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) EventOutcome(outcome string) {
	s.eventsTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) RunCompleted(duration time.Duration, eventsInDocument int, err error) {
	s.lastRunTimestamp.SetToCurrentTime()
	s.lastRunDuration.Set(duration.Seconds())
	if err != nil {
		s.runsTotal.WithLabelValues("failure").Inc()
		return
	}
	s.runsTotal.WithLabelValues("success").Inc()
	s.lastSuccessTimestamp.SetToCurrentTime()
	s.documentEvents.Set(float64(eventsInDocument))
}
