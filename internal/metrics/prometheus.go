package metrics

import (
	"net/http"
	"strconv"
	"time"

	"lv-ledger/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector owns a private registry. A nil *Collector is valid and records
// nothing.
type Collector struct {
	registry       *prometheus.Registry
	tradesOpened   prometheus.Counter
	tradesClosed   *prometheus.CounterVec
	closeRejected  *prometheus.CounterVec
	realizedProfit prometheus.Histogram
	httpDuration   *prometheus.HistogramVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		tradesOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_trades_opened_total",
			Help: "Trades placed by account owners",
		}),
		tradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_trades_closed_total",
			Help: "Trades moved from OPEN to CLOSED",
		}, []string{"path", "outcome"}),
		closeRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_close_rejected_total",
			Help: "Close and settle attempts that did not commit",
		}, []string{"path", "reason"}),
		realizedProfit: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_realized_profit",
			Help:    "Realized profit per closed trade",
			Buckets: []float64{-10000, -1000, -100, -10, 0, 10, 100, 1000, 10000},
		}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (c *Collector) TradeOpened() {
	if c == nil {
		return
	}
	c.tradesOpened.Inc()
}

func (c *Collector) TradeClosed(path string, outcome types.Outcome, profit decimal.Decimal) {
	if c == nil {
		return
	}
	c.tradesClosed.WithLabelValues(path, string(outcome)).Inc()
	c.realizedProfit.Observe(profit.InexactFloat64())
}

func (c *Collector) CloseRejected(path, reason string) {
	if c == nil {
		return
	}
	c.closeRejected.WithLabelValues(path, reason).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
