// Package metrics defines the Prometheus collectors exposed by the worker
// and the orchestrator on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker holds the per-shard collectors.
type Worker struct {
	Reified    prometheus.Counter
	Duplicates prometheus.Counter
	Evicted    prometheus.Counter
	QueueDepth prometheus.Gauge
	Generation prometheus.Gauge
}

// NewWorker registers and returns the worker collectors against reg. A nil
// reg leaves the collectors unregistered.
func NewWorker(reg prometheus.Registerer, shardID string) *Worker {
	f := promauto.With(reg)
	labels := prometheus.Labels{"shard_id": shardID}
	return &Worker{
		Reified: f.NewCounter(prometheus.CounterOpts{
			Name:        "exelixi_worker_reified_total",
			Help:        "Candidates successfully reified (deduped and evaluated) on this shard.",
			ConstLabels: labels,
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name:        "exelixi_worker_duplicate_total",
			Help:        "Reify attempts dropped because the key was already present in the key set.",
			ConstLabels: labels,
		}),
		Evicted: f.NewCounter(prometheus.CounterOpts{
			Name:        "exelixi_worker_evicted_total",
			Help:        "Candidates evicted from the candidates map during selection.",
			ConstLabels: labels,
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name:        "exelixi_worker_queue_depth",
			Help:        "Number of tasks currently pending on the shard's task queue.",
			ConstLabels: labels,
		}),
		Generation: f.NewGauge(prometheus.GaugeOpts{
			Name:        "exelixi_worker_generation",
			Help:        "Current generation number on this shard.",
			ConstLabels: labels,
		}),
	}
}

// Orchestrator holds the run-level collectors.
type Orchestrator struct {
	Generation       prometheus.Gauge
	BroadcastLatency *prometheus.HistogramVec
	TotalIndiv       prometheus.Gauge
}

// NewOrchestrator registers and returns the orchestrator collectors.
func NewOrchestrator(reg prometheus.Registerer) *Orchestrator {
	f := promauto.With(reg)
	return &Orchestrator{
		Generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "exelixi_orchestrator_generation",
			Help: "Current generation number of the run.",
		}),
		BroadcastLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exelixi_orchestrator_broadcast_seconds",
			Help:    "Latency of a fan-out broadcast to all shards, by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TotalIndiv: f.NewGauge(prometheus.GaugeOpts{
			Name: "exelixi_orchestrator_total_indiv",
			Help: "Total candidates ever seen, summed across shards at the last histogram aggregation.",
		}),
	}
}
