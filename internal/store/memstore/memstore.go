// Package memstore is an in-process store.Store. Transactions are serialized
// by a single mutex and run against a copy of the data that replaces the live
// state only on commit.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
)

type state struct {
	accounts      map[int64]model.Account
	trades        map[int64]model.Trade
	settings      *model.AppSettings
	nextAccountID int64
	nextTradeID   int64
}

func (s *state) clone() *state {
	out := *s
	out.accounts = maps.Clone(s.accounts)
	out.trades = maps.Clone(s.trades)
	if s.settings != nil {
		cp := *s.settings
		out.settings = &cp
	}
	return &out
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			accounts: make(map[int64]model.Account),
			trades:   make(map[int64]model.Trade),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&queries{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

// view runs a single statement against the live state. Each queries method
// validates before it writes, so a failed statement leaves no trace.
func view[T any](s *Store, fn func(q *queries) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&queries{st: s.st, now: s.now})
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) (model.Account, error) {
	return view(s, func(q *queries) (model.Account, error) { return q.CreateAccount(ctx, a) })
}

func (s *Store) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	return view(s, func(q *queries) (model.Account, error) { return q.GetAccount(ctx, id) })
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	return view(s, func(q *queries) (model.Account, error) { return q.GetAccountByUsername(ctx, username) })
}

func (s *Store) LoginCodeExists(ctx context.Context, code string) (bool, error) {
	return view(s, func(q *queries) (bool, error) { return q.LoginCodeExists(ctx, code) })
}

func (s *Store) ListAccounts(ctx context.Context, p store.Page) ([]model.Account, error) {
	return view(s, func(q *queries) ([]model.Account, error) { return q.ListAccounts(ctx, p) })
}

func (s *Store) UpdateAccount(ctx context.Context, id int64, u store.AccountUpdate) (model.Account, error) {
	return view(s, func(q *queries) (model.Account, error) { return q.UpdateAccount(ctx, id, u) })
}

func (s *Store) ApplyRealizedProfit(ctx context.Context, accountID int64, profit decimal.Decimal) (model.Account, error) {
	return view(s, func(q *queries) (model.Account, error) { return q.ApplyRealizedProfit(ctx, accountID, profit) })
}

func (s *Store) CreateTrade(ctx context.Context, t model.Trade) (model.Trade, error) {
	return view(s, func(q *queries) (model.Trade, error) { return q.CreateTrade(ctx, t) })
}

func (s *Store) GetTradeForUpdate(ctx context.Context, id int64) (model.Trade, error) {
	return view(s, func(q *queries) (model.Trade, error) { return q.GetTradeForUpdate(ctx, id) })
}

func (s *Store) GetOwnedTradeForUpdate(ctx context.Context, id, accountID int64) (model.Trade, error) {
	return view(s, func(q *queries) (model.Trade, error) { return q.GetOwnedTradeForUpdate(ctx, id, accountID) })
}

func (s *Store) ListTradesByAccount(ctx context.Context, accountID int64) ([]model.Trade, error) {
	return view(s, func(q *queries) ([]model.Trade, error) { return q.ListTradesByAccount(ctx, accountID) })
}

func (s *Store) ListTrades(ctx context.Context, p store.Page) ([]model.Trade, error) {
	return view(s, func(q *queries) ([]model.Trade, error) { return q.ListTrades(ctx, p) })
}

func (s *Store) CloseTrade(ctx context.Context, c store.TradeClose) (model.Trade, error) {
	return view(s, func(q *queries) (model.Trade, error) { return q.CloseTrade(ctx, c) })
}

func (s *Store) SetForcedOutcome(ctx context.Context, id int64, o types.Outcome) (model.Trade, error) {
	return view(s, func(q *queries) (model.Trade, error) { return q.SetForcedOutcome(ctx, id, o) })
}

func (s *Store) GetAppSettings(ctx context.Context) (model.AppSettings, error) {
	return view(s, func(q *queries) (model.AppSettings, error) { return q.GetAppSettings(ctx) })
}

func (s *Store) GetAppSettingsForUpdate(ctx context.Context) (model.AppSettings, error) {
	return view(s, func(q *queries) (model.AppSettings, error) { return q.GetAppSettingsForUpdate(ctx) })
}

func (s *Store) UpsertAppSettings(ctx context.Context, in model.AppSettings) (model.AppSettings, error) {
	return view(s, func(q *queries) (model.AppSettings, error) { return q.UpsertAppSettings(ctx, in) })
}

type queries struct {
	st  *state
	now func() time.Time
}

func (q *queries) CreateAccount(_ context.Context, a model.Account) (model.Account, error) {
	for _, existing := range q.st.accounts {
		if existing.Username == a.Username {
			return model.Account{}, store.ErrDuplicateUsername
		}
		if existing.LoginCode == a.LoginCode {
			return model.Account{}, store.ErrDuplicateLoginCode
		}
	}
	q.st.nextAccountID++
	a.ID = q.st.nextAccountID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = q.now()
	}
	q.st.accounts[a.ID] = a
	return a, nil
}

func (q *queries) GetAccount(_ context.Context, id int64) (model.Account, error) {
	a, ok := q.st.accounts[id]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (q *queries) GetAccountByUsername(_ context.Context, username string) (model.Account, error) {
	for _, a := range q.st.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Account{}, store.ErrNotFound
}

func (q *queries) LoginCodeExists(_ context.Context, code string) (bool, error) {
	for _, a := range q.st.accounts {
		if a.LoginCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (q *queries) ListAccounts(_ context.Context, p store.Page) ([]model.Account, error) {
	out := make([]model.Account, 0, len(q.st.accounts))
	for _, a := range q.st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, p), nil
}

func (q *queries) UpdateAccount(_ context.Context, id int64, u store.AccountUpdate) (model.Account, error) {
	a, ok := q.st.accounts[id]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	if u.Balance != nil {
		a.Balance = *u.Balance
	}
	if u.Equity != nil {
		a.Equity = *u.Equity
	}
	if u.Margin != nil {
		a.Margin = *u.Margin
	}
	if u.AccountType != nil {
		a.AccountType = *u.AccountType
	}
	if u.FullName != nil {
		a.FullName = *u.FullName
	}
	if u.Broker != nil {
		a.Broker = *u.Broker
	}
	q.st.accounts[id] = a
	return a, nil
}

func (q *queries) ApplyRealizedProfit(_ context.Context, accountID int64, profit decimal.Decimal) (model.Account, error) {
	a, ok := q.st.accounts[accountID]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	a.Balance = a.Balance.Add(profit)
	a.Equity = a.Equity.Add(profit)
	q.st.accounts[accountID] = a
	return a, nil
}

func (q *queries) CreateTrade(_ context.Context, t model.Trade) (model.Trade, error) {
	if _, ok := q.st.accounts[t.AccountID]; !ok {
		return model.Trade{}, store.ErrNotFound
	}
	q.st.nextTradeID++
	t.ID = q.st.nextTradeID
	if t.OpenTime.IsZero() {
		t.OpenTime = q.now()
	}
	q.st.trades[t.ID] = t
	return t, nil
}

func (q *queries) GetTradeForUpdate(_ context.Context, id int64) (model.Trade, error) {
	t, ok := q.st.trades[id]
	if !ok {
		return model.Trade{}, store.ErrNotFound
	}
	return t, nil
}

func (q *queries) GetOwnedTradeForUpdate(ctx context.Context, id, accountID int64) (model.Trade, error) {
	t, err := q.GetTradeForUpdate(ctx, id)
	if err != nil {
		return model.Trade{}, err
	}
	if t.AccountID != accountID {
		return model.Trade{}, store.ErrNotFound
	}
	return t, nil
}

func (q *queries) ListTradesByAccount(_ context.Context, accountID int64) ([]model.Trade, error) {
	out := make([]model.Trade, 0)
	for _, t := range q.st.trades {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (q *queries) ListTrades(_ context.Context, p store.Page) ([]model.Trade, error) {
	out := make([]model.Trade, 0, len(q.st.trades))
	for _, t := range q.st.trades {
		out = append(out, t)
	}
	sortNewestFirst(out)
	return paginate(out, p), nil
}

func (q *queries) CloseTrade(_ context.Context, c store.TradeClose) (model.Trade, error) {
	t, ok := q.st.trades[c.TradeID]
	if !ok {
		return model.Trade{}, store.ErrNotFound
	}
	if !t.IsOpen() {
		return model.Trade{}, store.ErrTradeNotOpen
	}
	closePrice := c.ClosePrice
	closeTime := c.CloseTime
	t.ClosePrice = &closePrice
	t.Profit = c.Profit
	t.ForcedOutcome = c.ForcedOutcome
	t.Status = types.TradeStatusClosed
	t.CloseTime = &closeTime
	q.st.trades[t.ID] = t
	return t, nil
}

func (q *queries) SetForcedOutcome(_ context.Context, id int64, o types.Outcome) (model.Trade, error) {
	t, ok := q.st.trades[id]
	if !ok {
		return model.Trade{}, store.ErrNotFound
	}
	t.ForcedOutcome = o
	q.st.trades[id] = t
	return t, nil
}

func (q *queries) GetAppSettings(_ context.Context) (model.AppSettings, error) {
	if q.st.settings == nil {
		return model.AppSettings{}, store.ErrNotFound
	}
	return *q.st.settings, nil
}

// GetAppSettingsForUpdate needs no lock of its own: InTx already holds the
// store mutex.
func (q *queries) GetAppSettingsForUpdate(_ context.Context) (model.AppSettings, error) {
	if q.st.settings == nil {
		def := model.DefaultAppSettings()
		def.UpdatedAt = q.now()
		q.st.settings = &def
	}
	return *q.st.settings, nil
}

func (q *queries) UpsertAppSettings(_ context.Context, in model.AppSettings) (model.AppSettings, error) {
	in.UpdatedAt = q.now()
	q.st.settings = &in
	return in, nil
}

func sortNewestFirst(ts []model.Trade) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].OpenTime.Equal(ts[j].OpenTime) {
			return ts[i].ID > ts[j].ID
		}
		return ts[i].OpenTime.After(ts[j].OpenTime)
	})
}

func paginate[T any](items []T, p store.Page) []T {
	if p.Skip >= len(items) {
		return []T{}
	}
	items = items[p.Skip:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
