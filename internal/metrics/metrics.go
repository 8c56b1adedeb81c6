// Package metrics holds the Prometheus collectors of both sides.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stocksim"

// Metrics is the collector set. Each process owns its own registry so
// tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	Rounds            *prometheus.CounterVec
	Published         *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	Consumed          *prometheus.CounterVec
	Malformed         *prometheus.CounterVec
	AckFailures       *prometheus.CounterVec
	ActivityOutcomes  *prometheus.CounterVec
	InstrumentPrice   *prometheus.GaugeVec
	InstrumentQty     *prometheus.GaugeVec
	ReplicaSize       prometheus.Gauge
	BrokerCash        *prometheus.GaugeVec
	BrokerTotalValue  *prometheus.GaugeVec
	BrokerActivities  *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPRequestLength *prometheus.HistogramVec
}

// New creates and registers every collector under subsystem, which is
// "market" or "trading".
func New(subsystem string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "rounds_total", Help: "Simulation rounds run.",
		}, []string{"result"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "messages_published_total", Help: "Messages published per stream.",
		}, []string{"stream"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "publish_failures_total", Help: "Failed publishes per stream.",
		}, []string{"stream"}),
		Consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "messages_consumed_total", Help: "Messages consumed per stream.",
		}, []string{"stream"}),
		Malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "malformed_messages_total", Help: "Payloads dropped because they did not decode.",
		}, []string{"stream"}),
		AckFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "ack_failures_total", Help: "Deliveries whose acknowledgment failed.",
		}, []string{"stream"}),
		ActivityOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "activity_outcomes_total", Help: "Broker activities by processing outcome.",
		}, []string{"outcome"}),
		InstrumentPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "instrument_price", Help: "Last published instrument price.",
		}, []string{"ticker"}),
		InstrumentQty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "instrument_available_quantity", Help: "Last published available quantity.",
		}, []string{"ticker"}),
		ReplicaSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "replica_instruments", Help: "Instruments in the current replica.",
		}),
		BrokerCash: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "broker_cash", Help: "Broker cash after the last round.",
		}, []string{"broker"}),
		BrokerTotalValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "broker_total_value", Help: "Broker cash plus holdings at replica prices.",
		}, []string{"broker"}),
		BrokerActivities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "broker_activities_total", Help: "Activities emitted per broker and action.",
		}, []string{"broker", "action"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "http_requests_total", Help: "Status API requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "http_request_duration_seconds", Help: "Status API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Rounds, m.Published, m.PublishFailures, m.Consumed, m.Malformed, m.AckFailures,
		m.ActivityOutcomes, m.InstrumentPrice, m.InstrumentQty, m.ReplicaSize,
		m.BrokerCash, m.BrokerTotalValue, m.BrokerActivities,
		m.HTTPRequests, m.HTTPRequestLength,
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// BrokerLabel formats a broker ID as a label value.
func BrokerLabel(id int) string {
	return strconv.Itoa(id)
}
