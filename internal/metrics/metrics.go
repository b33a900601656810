// Package metrics exports Prometheus metrics for Flickr API calls
package metrics

import (
	"context"
	"net/http"

	"github.com/alexbotov/flickrapi/pkg/flickr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts calls by method and outcome and tracks their latency
type Recorder struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cacheHit prometheus.Counter
}

var _ flickr.Observer = (*Recorder)(nil)

// New creates a Recorder with its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flickr",
			Name:      "api_calls_total",
			Help:      "Flickr API calls by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flickr",
			Name:      "api_call_duration_seconds",
			Help:      "Latency of Flickr API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flickr",
			Name:      "api_cache_hits_total",
			Help:      "Flickr API calls answered from the response cache.",
		}),
	}
	r.registry.MustRegister(r.calls, r.duration, r.cacheHit)
	return r
}

// ObserveCall implements flickr.Observer
func (r *Recorder) ObserveCall(_ context.Context, call flickr.CallInfo) {
	r.calls.WithLabelValues(call.Method, call.Outcome.String()).Inc()
	r.duration.WithLabelValues(call.Method).Observe(call.Duration.Seconds())
	if call.Cached {
		r.cacheHit.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
