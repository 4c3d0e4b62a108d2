// Package prommetrics exports core.MetricsRecorder counters and histograms to
// a Prometheus registry.
package prommetrics

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-shipnotify/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DurationBuckets covers 5ms to roughly 10s.
var DurationBuckets = prometheus.ExponentialBuckets(5, 2, 12)

// Recorder creates one vector per metric name on first use. The label set is
// fixed by that first call: later calls fill missing labels with "" and drop
// unknown ones.
type Recorder struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*vec[*prometheus.CounterVec]
	histograms map[string]*vec[*prometheus.HistogramVec]
}

type vec[T any] struct {
	collector T
	labels    []string
}

func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Recorder{
		registry:   registry,
		counters:   map[string]*vec[*prometheus.CounterVec]{},
		histograms: map[string]*vec[*prometheus.HistogramVec]{},
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	metricName := MetricName(name)
	if metricName == "" {
		return
	}
	r.mu.Lock()
	entry, ok := r.counters[metricName]
	if !ok {
		labels := labelNames(tags)
		collector := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metricName, Help: "shipnotify counter " + name}, labels)
		if err := r.registry.Register(collector); err != nil {
			r.mu.Unlock()
			return
		}
		entry = &vec[*prometheus.CounterVec]{collector: collector, labels: labels}
		r.counters[metricName] = entry
	}
	r.mu.Unlock()
	entry.collector.WithLabelValues(labelValues(entry.labels, tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metricName := MetricName(name)
	if metricName == "" {
		return
	}
	r.mu.Lock()
	entry, ok := r.histograms[metricName]
	if !ok {
		labels := labelNames(tags)
		collector := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName,
			Help:    "shipnotify histogram " + name,
			Buckets: DurationBuckets,
		}, labels)
		if err := r.registry.Register(collector); err != nil {
			r.mu.Unlock()
			return
		}
		entry = &vec[*prometheus.HistogramVec]{collector: collector, labels: labels}
		r.histograms[metricName] = entry
	}
	r.mu.Unlock()
	entry.collector.WithLabelValues(labelValues(entry.labels, tags)...).Observe(value)
}

// MetricName maps dotted observer names onto the Prometheus charset:
// "shipnotify.reconcile_in_transit.total" becomes
// "shipnotify_reconcile_in_transit_total".
func MetricName(name string) string {
	return sanitize(name, true)
}

func labelNames(tags map[string]string) []string {
	labels := make([]string, 0, len(tags))
	for key := range tags {
		if label := sanitize(key, false); label != "" {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return dedupe(labels)
}

func labelValues(labels []string, tags map[string]string) []string {
	sanitized := make(map[string]string, len(tags))
	for key, value := range tags {
		sanitized[sanitize(key, false)] = value
	}
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = sanitized[label]
	}
	return values
}

func sanitize(name string, allowColon bool) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		case r == ':' && allowColon:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if strings.HasPrefix(out, "__") && !allowColon {
		out = strings.TrimLeft(out, "_")
	}
	return out
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, value := range sorted {
		if i > 0 && value == sorted[i-1] {
			continue
		}
		out = append(out, value)
	}
	return out
}

var _ core.MetricsRecorder = (*Recorder)(nil)
