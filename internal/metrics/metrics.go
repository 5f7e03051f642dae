package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the Prometheus implementation of weather.Observer.
type Recorder struct {
	registry *prometheus.Registry

	upstreamRequests      *prometheus.CounterVec
	storeQueries          *prometheus.CounterVec
	normalizationFailures prometheus.Counter
	storeUp               prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry, including Go and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metar_upstream_requests_total",
			Help: "Live METAR provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metar_store_queries_total",
			Help: "Observation store queries by query and outcome.",
		}, []string{"query", "outcome"}),
		normalizationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metar_obstime_normalization_failures_total",
			Help: "Live reports whose obsTime could not be converted.",
		}),
		storeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "metar_store_up",
			Help: "1 if the last store health probe succeeded.",
		}),
	}

	registry.MustRegister(r.upstreamRequests, r.storeQueries, r.normalizationFailures, r.storeUp)
	return r
}

func (r *Recorder) UpstreamRequest(provider, outcome string) {
	r.upstreamRequests.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) StoreQuery(query, outcome string) {
	r.storeQueries.WithLabelValues(query, outcome).Inc()
}

func (r *Recorder) NormalizationFailure() {
	r.normalizationFailures.Inc()
}

// StoreHealth records the result of a store probe.
func (r *Recorder) StoreHealth(up bool) {
	if up {
		r.storeUp.Set(1)
		return
	}
	r.storeUp.Set(0)
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
