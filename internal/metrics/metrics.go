// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "damago"

// Registry is the registry every collector below is registered with
var Registry = prometheus.NewRegistry()

var (
	// TxRetries counts store transactions re-run after a conflict
	TxRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "tx_retries_total",
		Help:      "Transactions re-run because of a write conflict.",
	})

	// Deliveries counts push deliveries by message kind and outcome
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "deliveries_total",
		Help:      "Push delivery attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	// RetriesScheduled counts delivery retries handed to the scheduler
	RetriesScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "retries_scheduled_total",
		Help:      "Delivery retries scheduled, by retry kind.",
	}, []string{"kind"})

	// TasksProcessed counts scheduled tasks handled by the worker pool
	TasksProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_processed_total",
		Help:      "Scheduled tasks processed by queue and result.",
	}, []string{"queue", "result"})

	// RewardsCredited counts coins credited to couples by source
	RewardsCredited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "economy",
		Name:      "coins_credited_total",
		Help:      "Coins credited to couples by source.",
	}, []string{"source"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		TxRetries,
		Deliveries,
		RetriesScheduled,
		TasksProcessed,
		RewardsCredited,
	)
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
