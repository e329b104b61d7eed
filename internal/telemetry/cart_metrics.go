package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Merge outcomes used as the "result" label.
const (
	MergeApplied = "applied"
	MergeEmpty   = "empty"
	MergeSkipped = "skipped" // merge id was already applied
	MergeFailed  = "failed"
)

// CartMetrics holds Prometheus metrics for cart operations.
// Every cart metric carries the backend label: ephemeral or durable.
type CartMetrics struct {
	Operations     *prometheus.CounterVec
	OperationError *prometheus.CounterVec
	ItemsAdded     *prometheus.CounterVec
	Latency        *prometheus.HistogramVec

	Merges      *prometheus.CounterVec
	MergedItems prometheus.Counter

	CatalogProducts prometheus.Gauge
	CatalogReloads  *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics with reg. A nil reg falls back to
// the default registerer.
func NewCartMetrics(namespace string, reg prometheus.Registerer) *CartMetrics {
	if namespace == "" {
		namespace = "patfutbol"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	subsystem := "cart"

	return &CartMetrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total cart operations",
			},
			[]string{"backend", "op"}, // op: get, add, set_quantity, remove, clear
		),
		OperationError: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_errors_total",
				Help:      "Total failed cart operations by error code",
			},
			[]string{"backend", "op", "code"},
		),
		ItemsAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "items_added_total",
				Help:      "Total units added to carts",
			},
			[]string{"backend"},
		),
		Latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Cart operation latency in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"backend", "op"},
		),
		Merges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "merges_total",
				Help:      "Guest cart merges at login or registration",
			},
			[]string{"result"},
		),
		MergedItems: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "merged_lines_total",
				Help:      "Cart lines moved from guest carts into user carts",
			},
		),
		CatalogProducts: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "products",
				Help:      "Products in the loaded catalog snapshot",
			},
		),
		CatalogReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "reloads_total",
				Help:      "Catalog loads by result",
			},
			[]string{"result"}, // result: ok, error
		),
	}
}

// ObserveOp records one finished cart operation.
func (m *CartMetrics) ObserveOp(backend, op string, started time.Time, code string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(backend, op).Inc()
	m.Latency.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
	if code != "" {
		m.OperationError.WithLabelValues(backend, op, code).Inc()
	}
}

func (m *CartMetrics) ObserveMerge(result string, lines int) {
	if m == nil {
		return
	}
	m.Merges.WithLabelValues(result).Inc()
	if result == MergeApplied {
		m.MergedItems.Add(float64(lines))
	}
}

func (m *CartMetrics) ObserveCatalog(products int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CatalogReloads.WithLabelValues("error").Inc()
		return
	}
	m.CatalogReloads.WithLabelValues("ok").Inc()
	m.CatalogProducts.Set(float64(products))
}
