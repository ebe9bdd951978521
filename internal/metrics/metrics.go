// Package metrics exposes prometheus instrumentation for the correlator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the correlator's prometheus collectors.
type Metrics struct {
	eventsProcessed    prometheus.Counter
	eventsDropped      prometheus.Counter
	eventsInvalid      prometheus.Counter
	requestsAnswered   *prometheus.CounterVec
	incidentsRaised    *prometheus.CounterVec
	reportWrites       prometheus.Counter
	reportWriteErrors  prometheus.Counter
	processingDuration prometheus.Histogram
}

// NewMetrics creates and registers the collectors on the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		eventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskcorr_events_processed_total",
			Help: "Total sensor event messages processed",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskcorr_events_dropped_total",
			Help: "Total sensor event messages dropped (invalid path or unknown type)",
		}),
		eventsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskcorr_events_invalid_total",
			Help: "Total inbound messages that failed to decode",
		}),
		requestsAnswered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diskcorr_requests_answered_total",
			Help: "Total synchronous status requests answered, by request type",
		}, []string{"request_type"}),
		incidentsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diskcorr_incidents_raised_total",
			Help: "Total IEM incidents raised, by incident code",
		}, []string{"code"}),
		reportWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskcorr_report_writes_total",
			Help: "Total durable report rewrites",
		}),
		reportWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskcorr_report_write_errors_total",
			Help: "Total durable report writes that failed",
		}),
		processingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "diskcorr_message_processing_duration_seconds",
			Help:    "Per-message processing duration",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.eventsProcessed,
		m.eventsDropped,
		m.eventsInvalid,
		m.requestsAnswered,
		m.incidentsRaised,
		m.reportWrites,
		m.reportWriteErrors,
		m.processingDuration,
	)

	return m
}

// All methods tolerate a nil receiver so unit tests can run unregistered.

func (m *Metrics) IncEventsProcessed() {
	if m != nil {
		m.eventsProcessed.Inc()
	}
}

func (m *Metrics) IncEventsDropped() {
	if m != nil {
		m.eventsDropped.Inc()
	}
}

func (m *Metrics) IncEventsInvalid() {
	if m != nil {
		m.eventsInvalid.Inc()
	}
}

func (m *Metrics) IncRequestsAnswered(requestType string) {
	if m != nil {
		m.requestsAnswered.WithLabelValues(requestType).Inc()
	}
}

func (m *Metrics) IncIncidentsRaised(code string) {
	if m != nil {
		m.incidentsRaised.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncReportWrites() {
	if m != nil {
		m.reportWrites.Inc()
	}
}

func (m *Metrics) IncReportWriteErrors() {
	if m != nil {
		m.reportWriteErrors.Inc()
	}
}

func (m *Metrics) ObserveProcessingDuration(seconds float64) {
	if m != nil {
		m.processingDuration.Observe(seconds)
	}
}
