// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the engine's Prometheus instruments. It satisfies
// workflow.Metrics and digest.CacheMetrics.
type Collector struct {
	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	digestCache   *prometheus.CounterVec
	selectorRanks prometheus.Counter
}

// NewCollector registers the instruments on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total workflow steps executed",
			},
			[]string{"command", "status"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Workflow step duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total workflow runs",
			},
			[]string{"status"},
		),
		digestCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "digest_cache_total",
				Help:      "DOM digest cache outcomes",
			},
			[]string{"result"},
		),
		selectorRanks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selector_rankings_total",
				Help:      "Selector ranking passes performed",
			},
		),
	}
}

// StepExecuted records one step outcome.
func (c *Collector) StepExecuted(command string, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.stepsTotal.WithLabelValues(command, status).Inc()
	c.stepDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RunFinished records one run outcome.
func (c *Collector) RunFinished(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.runsTotal.WithLabelValues(status).Inc()
}

// DigestCache records a digest cache hit or miss.
func (c *Collector) DigestCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.digestCache.WithLabelValues(result).Inc()
}

// SelectorRanked records one ranking pass.
func (c *Collector) SelectorRanked() {
	c.selectorRanks.Inc()
}
