package metrics

import (
	"testing"
	"time"

	"lv-ledger/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()
	c := New()

	c.TradeOpened()
	c.TradeOpened()
	c.TradeClosed("close", types.OutcomeNone, decimal.NewFromInt(500))
	c.TradeClosed("settle", types.OutcomeLoss, decimal.NewFromInt(-250))
	c.CloseRejected("close", "invalid_state")
	c.ObserveHTTP("GET", "/v1/trades", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.tradesOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesClosed.WithLabelValues("close", "NONE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesClosed.WithLabelValues("settle", "LOSS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.closeRejected.WithLabelValues("close", "invalid_state")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpDuration))
}

func TestNilCollectorIsNoop(t *testing.T) {
	t.Parallel()
	var c *Collector
	assert.NotPanics(t, func() {
		c.TradeOpened()
		c.TradeClosed("close", types.OutcomeWin, decimal.NewFromInt(1))
		c.CloseRejected("close", "not_found")
		c.ObserveHTTP("GET", "/", 200, time.Second)
	})
}
