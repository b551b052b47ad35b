package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s *Store, username, code string) model.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), model.Account{
		Username:    username,
		LoginCode:   code,
		AccountType: types.AccountTypeDemo,
		Role:        types.RoleUser,
		Balance:     decimal.NewFromInt(1000),
		Equity:      decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	return a
}

func TestCreateAccountUniqueness(t *testing.T) {
	t.Parallel()
	s := New()
	seedAccount(t, s, "alice", "111111111")

	_, err := s.CreateAccount(context.Background(), model.Account{Username: "alice", LoginCode: "222222222"})
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)

	_, err = s.CreateAccount(context.Background(), model.Account{Username: "bob", LoginCode: "111111111"})
	assert.ErrorIs(t, err, store.ErrDuplicateLoginCode)

	exists, err := s.LoginCodeExists(context.Background(), "111111111")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, "alice", "111111111")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q store.Queries) error {
		if _, err := q.ApplyRealizedProfit(ctx, a.ID, decimal.NewFromInt(500)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(got.Balance))
	assert.True(t, decimal.NewFromInt(1000).Equal(got.Equity))
}

func TestCloseTradeOnlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, "alice", "111111111")
	tr, err := s.CreateTrade(ctx, model.Trade{
		AccountID:     a.ID,
		Symbol:        "EURUSD",
		Side:          types.TradeSideBuy,
		Volume:        decimal.NewFromInt(1),
		EntryPrice:    decimal.RequireFromString("1.1"),
		Status:        types.TradeStatusOpen,
		ForcedOutcome: types.OutcomeNone,
	})
	require.NoError(t, err)

	c := store.TradeClose{TradeID: tr.ID, ClosePrice: decimal.RequireFromString("1.2"), Profit: decimal.NewFromInt(10000), ForcedOutcome: types.OutcomeNone, CloseTime: time.Now()}
	closed, err := s.CloseTrade(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, types.TradeStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosePrice)
	require.NotNil(t, closed.CloseTime)

	_, err = s.CloseTrade(ctx, c)
	assert.ErrorIs(t, err, store.ErrTradeNotOpen)
}

func TestOwnedTradeLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	alice := seedAccount(t, s, "alice", "111111111")
	bob := seedAccount(t, s, "bob", "222222222")
	tr, err := s.CreateTrade(ctx, model.Trade{AccountID: alice.ID, Status: types.TradeStatusOpen})
	require.NoError(t, err)

	_, err = s.GetOwnedTradeForUpdate(ctx, tr.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetOwnedTradeForUpdate(ctx, tr.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)

	_, err = s.CreateTrade(ctx, model.Trade{AccountID: 999})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListTradesNewestFirstAndPaged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, "alice", "111111111")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.CreateTrade(ctx, model.Trade{AccountID: a.ID, Status: types.TradeStatusOpen, OpenTime: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	own, err := s.ListTradesByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, own, 5)
	for i := 1; i < len(own); i++ {
		assert.True(t, own[i-1].OpenTime.After(own[i].OpenTime))
	}

	page, err := s.ListTrades(ctx, store.Page{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, own[1].ID, page[0].ID)
	assert.Equal(t, own[2].ID, page[1].ID)

	empty, err := s.ListTrades(ctx, store.Page{Skip: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateAccountPartial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, "alice", "111111111")

	margin := decimal.NewFromInt(50)
	acctType := types.AccountTypeReal
	got, err := s.UpdateAccount(ctx, a.ID, store.AccountUpdate{Margin: &margin, AccountType: &acctType})
	require.NoError(t, err)
	assert.True(t, margin.Equal(got.Margin))
	assert.Equal(t, types.AccountTypeReal, got.AccountType)
	assert.True(t, a.Balance.Equal(got.Balance))

	_, err = s.UpdateAccount(ctx, 404, store.AccountUpdate{Margin: &margin})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppSettingsUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	_, err := s.GetAppSettings(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpsertAppSettings(ctx, model.AppSettings{AppName: "One", ThemePrimary: "#000", ThemeSecondary: "#fff"})
	require.NoError(t, err)
	_, err = s.UpsertAppSettings(ctx, model.AppSettings{AppName: "Two", ThemePrimary: "#111", ThemeSecondary: "#eee"})
	require.NoError(t, err)

	got, err := s.GetAppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Two", got.AppName)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestAppSettingsForUpdateSeedsDefaultsInsideTx(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q store.Queries) error {
		got, err := q.GetAppSettingsForUpdate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Private Trader", got.AppName)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetAppSettings(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
