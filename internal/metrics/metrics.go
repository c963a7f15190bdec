// Package metrics exposes prometheus instrumentation for the matching engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all engine metrics. It registers against the default
// registry exactly once; every engine shares the same collector.
type Collector struct {
	// Order flow
	OrdersTotal     *prometheus.CounterVec
	ModifiesTotal   *prometheus.CounterVec
	CancelsTotal    *prometheus.CounterVec
	ExecutionsTotal *prometheus.CounterVec
	VolumeQueries   prometheus.Counter

	// Book state
	RestingOrders *prometheus.GaugeVec
	BestBid       *prometheus.GaugeVec
	BestAsk       *prometheus.GaugeVec
}

func newCollector() *Collector {
	return &Collector{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidar",
			Name:      "orders_total",
			Help:      "Incoming orders accepted by the matcher",
		}, []string{"ticker", "side"}),
		ModifiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidar",
			Name:      "modifies_total",
			Help:      "Quantity modifications applied to resting orders",
		}, []string{"ticker"}),
		CancelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidar",
			Name:      "cancels_total",
			Help:      "Cancellations applied to resting orders",
		}, []string{"ticker"}),
		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidar",
			Name:      "executions_total",
			Help:      "Match events between incoming and resting orders",
		}, []string{"ticker"}),
		VolumeQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidar",
			Name:      "volume_queries_total",
			Help:      "Volume-at-level queries served",
		}),
		RestingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vidar",
			Name:      "resting_orders",
			Help:      "Live resting orders per book",
		}, []string{"ticker"}),
		BestBid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vidar",
			Name:      "best_bid",
			Help:      "Best bid price in ticks, 0 when the side is empty",
		}, []string{"ticker"}),
		BestAsk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vidar",
			Name:      "best_ask",
			Help:      "Best ask price in ticks, 0 when the side is empty",
		}, []string{"ticker"}),
	}
}

func (c *Collector) register() {
	prometheus.MustRegister(
		c.OrdersTotal,
		c.ModifiesTotal,
		c.CancelsTotal,
		c.ExecutionsTotal,
		c.VolumeQueries,
		c.RestingOrders,
		c.BestBid,
		c.BestAsk,
	)
}

// GetCollector returns the singleton collector.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
		collector.register()
	})
	return collector
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
