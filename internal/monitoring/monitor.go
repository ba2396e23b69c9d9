package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"pantry/internal/apperror"
	"pantry/internal/models"
	"pantry/internal/storage"
)

// StockValuer is the part of the ledger the value gauges read.
type StockValuer interface {
	TotalValue() decimal.Decimal
	TotalExpiredValue() decimal.Decimal
}

// RecipeCounter reports how many recipes are held
type RecipeCounter interface {
	Len() int
}

// Monitor records ledger activity as Prometheus metrics on its own registry.
type Monitor struct {
	registry  *prometheus.Registry
	metrics   map[string]prometheus.Collector
	startTime time.Time

	registered  *prometheus.CounterVec
	withdrawals *prometheus.CounterVec
	withdrawn   *prometheus.CounterVec
	depletions  prometheus.Counter
	expired     *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

var _ storage.Observer = (*Monitor)(nil)

// NewMonitor creates a monitor with all counters registered
func NewMonitor() *Monitor {
	m := &Monitor{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),

		registered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_batches_registered_total",
				Help: "Grocery registrations by outcome",
			},
			[]string{"outcome"},
		),
		withdrawals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_withdrawals_total",
				Help: "Successful withdrawals by canonical unit",
			},
			[]string{"unit"},
		),
		withdrawn: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_withdrawn_amount_total",
				Help: "Amount withdrawn in canonical units",
			},
			[]string{"unit"},
		),
		depletions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pantry_depletions_total",
				Help: "Withdrawals that left a grocery out of stock",
			},
		),
		expired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_expired_batches_total",
				Help: "Expired batches removed from active stock",
			},
			[]string{"action"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_operation_failures_total",
				Help: "Rejected operations by error kind",
			},
			[]string{"operation", "kind"},
		),
	}

	m.metrics = map[string]prometheus.Collector{
		"registered":  m.registered,
		"withdrawals": m.withdrawals,
		"withdrawn":   m.withdrawn,
		"depletions":  m.depletions,
		"expired":     m.expired,
		"failures":    m.failures,
		"uptime": prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "pantry_uptime_seconds",
				Help: "Seconds since the monitor started",
			},
			func() float64 { return time.Since(m.startTime).Seconds() },
		),
	}
	for _, metric := range m.metrics {
		m.registry.MustRegister(metric)
	}
	return m
}

// Watch registers gauges that read stock value and recipe count on every scrape.
// Either argument may be nil. Calling Watch twice returns the registry error.
func (m *Monitor) Watch(stock StockValuer, recipes RecipeCounter) error {
	var gauges []prometheus.Collector
	if stock != nil {
		gauges = append(gauges,
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{Name: "pantry_stock_value", Help: "Total value of active stock"},
				func() float64 { return stock.TotalValue().InexactFloat64() },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{Name: "pantry_expired_stock_value", Help: "Total value of expired stock"},
				func() float64 { return stock.TotalExpiredValue().InexactFloat64() },
			),
		)
	}
	if recipes != nil {
		gauges = append(gauges, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "pantry_recipes", Help: "Recipes in the book"},
			func() float64 { return float64(recipes.Len()) },
		))
	}

	for _, g := range gauges {
		if err := m.registry.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// BatchRegistered implements storage.Observer.
func (m *Monitor) BatchRegistered(_ models.InventoryItem, merged bool) {
	outcome := "new"
	if merged {
		outcome = "merged"
	}
	m.registered.WithLabelValues(outcome).Inc()
}

// StockWithdrawn implements storage.Observer.
func (m *Monitor) StockWithdrawn(w storage.Withdrawal) {
	unit := w.Unit.String()
	m.withdrawals.WithLabelValues(unit).Inc()
	m.withdrawn.WithLabelValues(unit).Add(w.Amount.InexactFloat64())
	if w.Depleted {
		m.depletions.Inc()
	}
}

// BatchesExpired implements storage.Observer.
func (m *Monitor) BatchesExpired(items []models.InventoryItem) {
	m.expired.WithLabelValues("moved").Add(float64(len(items)))
}

// BatchesPurged implements storage.Observer.
func (m *Monitor) BatchesPurged(items []models.InventoryItem) {
	m.expired.WithLabelValues("purged").Add(float64(len(items)))
}

// RecordFailure counts a rejected operation. A nil error is ignored.
func (m *Monitor) RecordFailure(operation string, err error) {
	if err == nil {
		return
	}
	m.failures.WithLabelValues(operation, string(apperror.KindOf(err))).Inc()
}

// Registry exposes the underlying registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
