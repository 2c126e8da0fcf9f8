package obs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/bezva-storefront/internal/notify"
)

// StoreMetrics holds the storefront's domain collectors. It implements cart.Recorder.
type StoreMetrics struct {
	CartMutations   *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	CartLines       prometheus.Gauge
	CartUnits       prometheus.Gauge
	CartTotal       prometheus.Gauge
	Notifications   *prometheus.CounterVec
	CatalogProducts prometheus.Gauge
}

// NewStoreMetrics registers the domain collectors on reg.
func NewStoreMetrics(namespace string, reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &StoreMetrics{
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart operations by outcome.",
		}, []string{"op", "result"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_failures_total",
			Help:      "Failed writes of cart records to storage.",
		}, []string{"record"}),
		CartLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_lines",
			Help:      "Distinct lines currently in the cart.",
		}),
		CartUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_units",
			Help:      "Sum of quantities currently in the cart.",
		}),
		CartTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_total_czk",
			Help:      "Cart total after discount in CZK.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User-facing notifications by kind.",
		}, []string{"kind"}),
		CatalogProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Products in the loaded catalog.",
		}),
	}
	m.CartMutations = register(reg, m.CartMutations)
	m.PersistFailures = register(reg, m.PersistFailures)
	m.CartLines = register(reg, m.CartLines)
	m.CartUnits = register(reg, m.CartUnits)
	m.CartTotal = register(reg, m.CartTotal)
	m.Notifications = register(reg, m.Notifications)
	m.CatalogProducts = register(reg, m.CatalogProducts)
	return m
}

// Mutation counts a cart operation.
func (m *StoreMetrics) Mutation(op, result string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op, result).Inc()
}

// PersistFailure counts a failed storage write.
func (m *StoreMetrics) PersistFailure(record string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(record).Inc()
}

// ObserveCart updates the cart gauges.
func (m *StoreMetrics) ObserveCart(lines, units int, total float64) {
	if m == nil {
		return
	}
	m.CartLines.Set(float64(lines))
	m.CartUnits.Set(float64(units))
	m.CartTotal.Set(total)
}

// Notify implements notify.Notifier by counting notifications.
func (m *StoreMetrics) Notify(_ context.Context, n notify.Notification) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(string(notify.ParseKind(string(n.Kind)))).Inc()
}
