package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eztutor"

// PrometheusSink maps counter names onto a labelled CounterVec and
// histogram names onto a labelled HistogramVec.
type PrometheusSink struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusSink registers the export collectors on a fresh registry.
func NewPrometheusSink() *PrometheusSink {
	registry := prometheus.NewRegistry()

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "export_events_total",
		Help:      "Export subsystem events by name",
	}, []string{"event"})

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "export_operation_duration_seconds",
		Help:      "Duration of export subsystem operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	registry.MustRegister(events, durations)
	registry.MustRegister(collectors.NewGoCollector())

	return &PrometheusSink{
		registry:  registry,
		events:    events,
		durations: durations,
	}
}

func (p *PrometheusSink) Inc(name string) {
	p.events.WithLabelValues(name).Inc()
}

func (p *PrometheusSink) Observe(name string, value float64) {
	p.durations.WithLabelValues(name).Observe(value)
}

// Registry exposes the underlying registry for gathering in tests.
func (p *PrometheusSink) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
