// Package metrics provides Prometheus metrics for the caching engine.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rawrcache"

// Recorder holds the engine's collectors. A nil *Recorder records nothing,
// so callers never need to check whether metrics are enabled.
type Recorder struct {
	lookups     *prometheus.CounterVec
	stores      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	flushes     *prometheus.CounterVec
	passthrough *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	loadTime    *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"cache", "result"}),
		stores: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stores_total",
			Help:      "Values stored after a miss.",
		}, []string{"cache"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Provider failures by operation.",
		}, []string{"cache", "op"}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Flushes by phase and result.",
		}, []string{"caches", "phase", "result"}),
		passthrough: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passthrough_total",
			Help:      "Calls forwarded without a model.",
		}, []string{"interceptor"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Model source scans by resolver and outcome.",
		}, []string{"resolver", "result"}),
		loadTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of target invocations on a cache miss.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cache"}),
	}
}

// Hit records a cache hit.
func (r *Recorder) Hit(cache string) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(cache, "hit").Inc()
}

// Miss records a cache miss.
func (r *Recorder) Miss(cache string) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(cache, "miss").Inc()
}

// Store records a stored value.
func (r *Recorder) Store(cache string) {
	if r == nil {
		return
	}
	r.stores.WithLabelValues(cache).Inc()
}

// Error records a provider failure during op.
func (r *Recorder) Error(cache, op string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(cache, op).Inc()
}

// Flush records a flush of caches in phase ("before" or "after").
func (r *Recorder) Flush(caches []string, phase string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.flushes.WithLabelValues(strings.Join(caches, ","), phase, result).Inc()
}

// Passthrough records a call forwarded by interceptor without a model.
func (r *Recorder) Passthrough(interceptor string) {
	if r == nil {
		return
	}
	r.passthrough.WithLabelValues(interceptor).Inc()
}

// Resolution records a model source scan.
func (r *Recorder) Resolution(resolver string, found bool) {
	if r == nil {
		return
	}
	result := "not_found"
	if found {
		result = "found"
	}
	r.resolutions.WithLabelValues(resolver, result).Inc()
}

// Load records how long the target took on a miss.
func (r *Recorder) Load(cache string, d time.Duration) {
	if r == nil {
		return
	}
	r.loadTime.WithLabelValues(cache).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
