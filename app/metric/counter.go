package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IncrementalCounter interface {
	Increment(val ...string)
}

type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

func NewCounterWithRegistry(reg prometheus.Registerer, name, help string, labels ...string) IncrementalCounter {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)

	reg.MustRegister(counter)

	return &Counter{
		Name: name,
		Help: help,
		vec:  counter,
	}
}

// Nop discards increments. Used when metrics are not wired.
type Nop struct{}

func (Nop) Increment(...string) {}

// Set groups the counters the service records.
type Set struct {
	ContentFetches IncrementalCounter // labels: operation, result
	MenuBuilds     IncrementalCounter // labels: location, result
	TaskRuns       IncrementalCounter // labels: type, result
}

// NewSet registers the service counters with reg.
func NewSet(reg prometheus.Registerer) *Set {
	return &Set{
		ContentFetches: NewCounterWithRegistry(reg, "presscomb_content_fetches_total",
			"Content aggregator fetches by operation and result.", "operation", "result"),
		MenuBuilds: NewCounterWithRegistry(reg, "presscomb_menu_builds_total",
			"Menu tree builds by location and result.", "location", "result"),
		TaskRuns: NewCounterWithRegistry(reg, "presscomb_task_runs_total",
			"Background task executions by type and result.", "type", "result"),
	}
}

// NopSet returns a Set whose counters discard everything.
func NopSet() *Set {
	return &Set{ContentFetches: Nop{}, MenuBuilds: Nop{}, TaskRuns: Nop{}}
}

// GetHandlerForRegistry returns an HTTP handler for serving Prometheus metrics from a custom registry.
func GetHandlerForRegistry(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
