package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics records purchase and wallet activity.
type ShopMetrics struct {
	ordersCreated    *prometheus.CounterVec
	orderRejections  *prometheus.CounterVec
	purchaseDuration *prometheus.HistogramVec
	topupsProcessed  *prometheus.CounterVec
	txRetries        *prometheus.CounterVec
}

// NewShopMetrics registers the storefront metrics on the provided registerer.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed, by product type.",
	}, []string{"product_type"})
	orderRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_rejections_total",
		Help: "Purchase attempts rejected, by error code.",
	}, []string{"code"})
	purchaseDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purchase_duration_seconds",
		Help:    "Duration of the purchase unit of work in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	topupsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topups_processed_total",
		Help: "Top-up requests decided by an admin.",
	}, []string{"decision"})
	txRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_tx_retries_total",
		Help: "Wallet transactions replayed after transient store contention.",
	}, []string{"operation"})
	reg.MustRegister(ordersCreated, orderRejections, purchaseDuration, topupsProcessed, txRetries)
	return &ShopMetrics{
		ordersCreated:    ordersCreated,
		orderRejections:  orderRejections,
		purchaseDuration: purchaseDuration,
		topupsProcessed:  topupsProcessed,
		txRetries:        txRetries,
	}
}

// IncOrderCreated counts a committed order.
func (m *ShopMetrics) IncOrderCreated(productType string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(productType)).Inc()
}

// IncOrderRejected counts a purchase rejected with the given error code.
func (m *ShopMetrics) IncOrderRejected(code string) {
	if m == nil || m.orderRejections == nil {
		return
	}
	m.orderRejections.WithLabelValues(normalizeLabel(code)).Inc()
}

// ObservePurchase records how long a purchase took.
func (m *ShopMetrics) ObservePurchase(outcome string, duration time.Duration) {
	if m == nil || m.purchaseDuration == nil {
		return
	}
	m.purchaseDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncTopupProcessed counts an approve or reject decision.
func (m *ShopMetrics) IncTopupProcessed(decision string) {
	if m == nil || m.topupsProcessed == nil {
		return
	}
	m.topupsProcessed.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncTxRetry counts a replayed transaction.
func (m *ShopMetrics) IncTxRetry(operation string) {
	if m == nil || m.txRetries == nil {
		return
	}
	m.txRetries.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
