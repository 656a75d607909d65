// Package metrics records build and live-reload metrics with Prometheus.
//
// A nil *Recorder is valid and records nothing, so one-shot builds can run
// without a registry.
package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitebuild"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Recorder owns a private registry and the collectors registered on it.
type Recorder struct {
	registry *prom.Registry

	taskDuration  *prom.HistogramVec
	taskResults   *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	rebuilds      *prom.CounterVec
	reloads       *prom.CounterVec

	clientsOnce sync.Once
}

// New constructs a Recorder and registers its collectors on reg. A nil reg
// gets a fresh private registry.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{registry: reg}

	r.taskDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Duration of individual build tasks",
		Buckets:   prom.DefBuckets,
	}, []string{"task"})
	r.taskResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_results_total",
		Help:      "Task result counts by outcome",
	}, []string{"task", "result"})
	r.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total duration of full builds",
		Buckets:   prom.DefBuckets,
	})
	r.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Full build outcomes by final status",
	}, []string{"outcome"})
	r.rebuilds = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "watch_rebuilds_total",
		Help:      "Watch-triggered rebuilds by group and outcome",
	}, []string{"group", "result"})
	r.reloads = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "livereload_messages_total",
		Help:      "Live-reload messages broadcast by type",
	}, []string{"type"})

	reg.MustRegister(r.taskDuration, r.taskResults, r.buildDuration, r.buildOutcome, r.rebuilds, r.reloads)
	return r
}

// NewDefault constructs a Recorder on a private registry that also exports
// Go runtime and process collectors.
func NewDefault() *Recorder {
	reg := prom.NewRegistry()
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return New(reg)
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveTask(task, result string, d time.Duration) {
	if r == nil {
		return
	}
	if result != ResultSkipped {
		r.taskDuration.WithLabelValues(task).Observe(d.Seconds())
	}
	r.taskResults.WithLabelValues(task, result).Inc()
}

func (r *Recorder) ObserveBuild(d time.Duration, success bool) {
	if r == nil {
		return
	}
	r.buildDuration.Observe(d.Seconds())
	r.buildOutcome.WithLabelValues(outcome(success)).Inc()
}

func (r *Recorder) IncRebuild(group string, success bool) {
	if r == nil {
		return
	}
	r.rebuilds.WithLabelValues(group, outcome(success)).Inc()
}

func (r *Recorder) IncReload(messageType string) {
	if r == nil {
		return
	}
	r.reloads.WithLabelValues(messageType).Inc()
}

// TrackClients exports the number of connected live-reload clients, read at
// scrape time. Only the first call registers the gauge.
func (r *Recorder) TrackClients(count func() int) {
	if r == nil {
		return
	}
	r.clientsOnce.Do(func() {
		r.registry.MustRegister(prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients",
		}, func() float64 { return float64(count()) }))
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func outcome(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailed
}
