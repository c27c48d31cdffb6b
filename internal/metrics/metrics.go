// Package metrics exposes Prometheus counters for the ingestion loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/inventory-sync/internal/ingest"
)

// Cycle outcomes
const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics implements ingest.CycleObserver
type Metrics struct {
	CyclesTotal       *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	MessagesFetched   prometheus.Counter
	MessagesSkipped   prometheus.Counter
	MessagesAbandoned prometheus.Counter
	ExtractFailures   prometheus.Counter
	ItemsAppended     prometheus.Counter
	ProcessedIDs      prometheus.Gauge
}

// New registers the loop metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_cycles_total",
				Help: "Total ingestion cycles",
			},
			[]string{"result"}, // "ok" or "error"
		),
		CycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inventory_cycle_duration_seconds",
				Help:    "Ingestion cycle duration",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		MessagesFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_messages_fetched_total",
			Help: "Total messages returned by the mailbox",
		}),
		MessagesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_messages_skipped_total",
			Help: "Total messages skipped as processed, duplicate or empty",
		}),
		MessagesAbandoned: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_messages_abandoned_total",
			Help: "Total messages skipped after repeated extraction failures",
		}),
		ExtractFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_extract_failures_total",
			Help: "Total failed extraction calls",
		}),
		ItemsAppended: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_items_appended_total",
			Help: "Total inventory rows written to the sink",
		}),
		ProcessedIDs: f.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_processed_ids",
			Help: "Size of the in-memory processed id set",
		}),
	}
}

// ObserveCycle records the counters of one cycle. Items count only when the append succeeded.
func (m *Metrics) ObserveCycle(result ingest.CycleResult, processed int, err error, elapsed time.Duration) {
	outcome := resultOK
	if err != nil {
		outcome = resultError
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
	m.MessagesFetched.Add(float64(result.Fetched))
	m.MessagesSkipped.Add(float64(result.Skipped))
	m.MessagesAbandoned.Add(float64(result.Abandoned))
	m.ExtractFailures.Add(float64(result.Failed))
	if len(result.NewIDs) > 0 {
		m.ItemsAppended.Add(float64(result.Items))
	}
	m.ProcessedIDs.Set(float64(processed))
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
