package obs

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics collects business-level counters for the point of sale flow.
type DomainMetrics struct {
	OrdersCreated    *prometheus.CounterVec
	CheckoutRejected *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	LowStockProducts prometheus.Gauge
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
}

// NewDomainMetrics registers the domain metric collectors on the registry.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_orders_created_total",
			Help: "Orders created, partitioned by payment method and result.",
		}, []string{"payment_method", "result"}),
		CheckoutRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_checkout_rejected_total",
			Help: "Checkout attempts rejected before order creation, by reason.",
		}, []string{"reason"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pos_checkout_duration_ms",
			Help:    "End-to-end checkout latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		LowStockProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_low_stock_products",
			Help: "Number of products at or below their low-stock threshold.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_cache_hits_total",
			Help: "Cache hits by cache name.",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_cache_misses_total",
			Help: "Cache misses by cache name.",
		}, []string{"cache"}),
	}
	mustRegister(reg,
		m.OrdersCreated,
		m.CheckoutRejected,
		m.CheckoutDuration,
		m.LowStockProducts,
		m.CacheHits,
		m.CacheMisses,
	)
	return m
}
