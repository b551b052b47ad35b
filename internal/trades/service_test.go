package trades

import (
	"context"
	"strings"
	"testing"
	"time"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/events"
	"lv-ledger/internal/metrics"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/store/memstore"
	"lv-ledger/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, st *memstore.Store, username string) model.Account {
	t.Helper()
	acct, err := st.CreateAccount(context.Background(), model.Account{
		Username:  username,
		LoginCode: username + "-code",
		Role:      types.RoleUser,
		Balance:   decimal.NewFromInt(10000),
		Equity:    decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	return acct
}

func validInput() PlaceInput {
	return PlaceInput{
		Symbol:     " EURUSD ",
		Side:       "BUY",
		Volume:     decimal.RequireFromString("1.0"),
		EntryPrice: decimal.RequireFromString("1.1000"),
	}
}

func TestPlaceOpensTrade(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	acct := newAccount(t, st, "alice")
	bus := events.NewBus()
	sub := bus.Subscribe()
	m := metrics.New()
	svc := NewService(st, zap.NewNop(), WithPublisher(bus), WithMetrics(m), WithClock(func() time.Time { return t0 }))

	sl := decimal.RequireFromString("1.0900")
	in := validInput()
	in.StopLoss = &sl
	tr, err := svc.Place(context.Background(), acct.ID, in)
	require.NoError(t, err)

	assert.NotZero(t, tr.ID)
	assert.Equal(t, acct.ID, tr.AccountID)
	assert.Equal(t, "EURUSD", tr.Symbol)
	assert.Equal(t, types.TradeSideBuy, tr.Side)
	assert.Equal(t, types.TradeStatusOpen, tr.Status)
	assert.Equal(t, types.OutcomeNone, tr.ForcedOutcome)
	assert.True(t, tr.Profit.IsZero())
	assert.Nil(t, tr.ClosePrice)
	assert.Nil(t, tr.CloseTime)
	assert.Nil(t, tr.TakeProfit)
	require.NotNil(t, tr.StopLoss)
	assert.True(t, tr.StopLoss.Equal(sl))
	assert.Equal(t, t0, tr.OpenTime)

	select {
	case evt := <-sub:
		assert.Equal(t, events.TypeTradeOpened, evt.Type)
		assert.Equal(t, acct.ID, evt.AccountID)
	default:
		t.Fatal("expected trade.opened event")
	}
	const want = `
# HELP ledger_trades_opened_total Trades placed by account owners
# TYPE ledger_trades_opened_total counter
ledger_trades_opened_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "ledger_trades_opened_total"))

	got, err := st.GetAccount(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(acct.Balance), "placing a trade never moves the balance")
}

func TestPlaceValidation(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	acct := newAccount(t, st, "bob")
	svc := NewService(st, zap.NewNop())
	neg := decimal.NewFromInt(-1)

	cases := map[string]func(*PlaceInput){
		"empty symbol":   func(in *PlaceInput) { in.Symbol = "   " },
		"bad side":       func(in *PlaceInput) { in.Side = "hold" },
		"zero volume":    func(in *PlaceInput) { in.Volume = decimal.Zero },
		"negative price": func(in *PlaceInput) { in.EntryPrice = neg },
		"negative sl":    func(in *PlaceInput) { in.StopLoss = &neg },
		"negative tp":    func(in *PlaceInput) { in.TakeProfit = &neg },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Place(context.Background(), acct.ID, in)
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), name)
	}

	list, err := svc.ListOwn(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPlaceForMissingAccount(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	_, err := svc.Place(context.Background(), 404, validInput())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListOwnAndAll(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	alice := newAccount(t, st, "alice")
	bob := newAccount(t, st, "bob")
	clock := t0
	svc := NewService(st, zap.NewNop(), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	a1, err := svc.Place(ctx, alice.ID, validInput())
	require.NoError(t, err)
	b1, err := svc.Place(ctx, bob.ID, validInput())
	require.NoError(t, err)
	a2, err := svc.Place(ctx, alice.ID, validInput())
	require.NoError(t, err)

	own, err := svc.ListOwn(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	for _, tr := range own {
		assert.Equal(t, alice.ID, tr.AccountID)
	}

	all, err := svc.ListAll(ctx, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a2.ID, b1.ID, a1.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	paged, err := svc.ListAll(ctx, store.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, b1.ID, paged[0].ID)
}
