// Package ledger enacts the OPEN to CLOSED transition of trades and applies
// the realized profit to the owning account in the same transaction. It also
// carries the administrative overrides on trades and accounts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/events"
	"lv-ledger/internal/journal"
	"lv-ledger/internal/metrics"
	"lv-ledger/internal/model"
	"lv-ledger/internal/settlement"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Journal interface {
	Record(ctx context.Context, r journal.Record) error
}

type Publisher interface {
	Publish(evt events.Event)
}

type Engine struct {
	store   store.Store
	log     *zap.Logger
	metrics *metrics.Collector
	bus     Publisher
	journal Journal
	now     func() time.Time
}

type Option func(*Engine)

func WithMetrics(c *metrics.Collector) Option { return func(e *Engine) { e.metrics = c } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.bus = p } }

func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(st store.Store, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store: st,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settlement is the result of an administrative settle.
type Settlement struct {
	Trade      model.Trade     `json:"trade"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// CloseTrade closes an OPEN trade owned by accountID at closePrice. The
// trade's forced outcome, if any, decides the sign of the profit. Lifecycle
// errors take precedence over a bad close price.
func (e *Engine) CloseTrade(ctx context.Context, tradeID, accountID int64, closePrice decimal.Decimal) (model.Trade, error) {
	var closed model.Trade
	var acct model.Account
	err := e.store.InTx(ctx, func(q store.Queries) error {
		t, err := q.GetOwnedTradeForUpdate(ctx, tradeID, accountID)
		if err != nil {
			return notFoundOr(err, "trade not found")
		}
		if !t.IsOpen() {
			return apperr.InvalidState("trade is already closed")
		}
		if !closePrice.IsPositive() {
			return apperr.InvalidArgument("close_price must be greater than 0")
		}
		profit, err := settlement.PriceClose(t.Side, t.EntryPrice, closePrice, t.Volume, t.ForcedOutcome)
		if err != nil {
			return err
		}
		closed, acct, err = e.commitClose(ctx, q, t, store.TradeClose{
			TradeID:       t.ID,
			ClosePrice:    closePrice,
			Profit:        profit,
			ForcedOutcome: t.ForcedOutcome,
			CloseTime:     e.now(),
		})
		return err
	})
	if err != nil {
		e.rejected(journal.PathClose, tradeID, err)
		return model.Trade{}, err
	}
	e.afterClose(ctx, journal.PathClose, closed, acct)
	return closed, nil
}

// AdminSettleTrade closes an OPEN trade with a declared outcome and amount.
// The recorded close price is the entry price.
func (e *Engine) AdminSettleTrade(ctx context.Context, tradeID int64, outcome types.Outcome, amount decimal.Decimal) (Settlement, error) {
	profit, err := settlement.AdminSettle(outcome, amount)
	if err != nil {
		return Settlement{}, err
	}
	var closed model.Trade
	var acct model.Account
	err = e.store.InTx(ctx, func(q store.Queries) error {
		t, err := q.GetTradeForUpdate(ctx, tradeID)
		if err != nil {
			return notFoundOr(err, "trade not found")
		}
		if !t.IsOpen() {
			return apperr.InvalidState("trade is already closed")
		}
		closed, acct, err = e.commitClose(ctx, q, t, store.TradeClose{
			TradeID:       t.ID,
			ClosePrice:    t.EntryPrice,
			Profit:        profit,
			ForcedOutcome: outcome,
			CloseTime:     e.now(),
		})
		return err
	})
	if err != nil {
		e.rejected(journal.PathSettle, tradeID, err)
		return Settlement{}, err
	}
	e.afterClose(ctx, journal.PathSettle, closed, acct)
	return Settlement{Trade: closed, NewBalance: acct.Balance}, nil
}

// commitClose writes the frozen trade outcome and the account credit. The
// conditional update re-checks status so a racing close observes InvalidState.
func (e *Engine) commitClose(ctx context.Context, q store.Queries, t model.Trade, c store.TradeClose) (model.Trade, model.Account, error) {
	closed, err := q.CloseTrade(ctx, c)
	if err != nil {
		if errors.Is(err, store.ErrTradeNotOpen) {
			return model.Trade{}, model.Account{}, apperr.InvalidState("trade is already closed")
		}
		return model.Trade{}, model.Account{}, fmt.Errorf("close trade %d: %w", t.ID, err)
	}
	acct, err := q.ApplyRealizedProfit(ctx, t.AccountID, c.Profit)
	if err != nil {
		return model.Trade{}, model.Account{}, notFoundOr(err, "account not found")
	}
	return closed, acct, nil
}

// AdminForceOutcome annotates a trade with the outcome its next close will
// take. It does not look at status: on a closed trade it has no effect on
// balances.
func (e *Engine) AdminForceOutcome(ctx context.Context, tradeID int64, outcome types.Outcome) (model.Trade, error) {
	if !outcome.Valid() {
		return model.Trade{}, apperr.InvalidArgument("outcome must be WIN, LOSS or NONE")
	}
	t, err := e.store.SetForcedOutcome(ctx, tradeID, outcome)
	if err != nil {
		return model.Trade{}, notFoundOr(err, "trade not found")
	}
	e.log.Info("trade outcome forced",
		zap.Int64("trade_id", t.ID),
		zap.String("outcome", string(outcome)),
		zap.String("status", string(t.Status)),
	)
	e.publish(events.New(events.TypeTradeOutcomeForced, t.AccountID, t))
	return t, nil
}

// AdminAdjustAccount overwrites the supplied fields. Balance and equity are
// not reconciled against each other.
func (e *Engine) AdminAdjustAccount(ctx context.Context, accountID int64, u store.AccountUpdate) (model.Account, error) {
	if u.AccountType != nil && !u.AccountType.Valid() {
		return model.Account{}, apperr.InvalidArgument("account_type must be demo or real")
	}
	var (
		acct model.Account
		err  error
	)
	if u.Empty() {
		acct, err = e.store.GetAccount(ctx, accountID)
	} else {
		acct, err = e.store.UpdateAccount(ctx, accountID, u)
	}
	if err != nil {
		return model.Account{}, notFoundOr(err, "account not found")
	}
	e.log.Info("account adjusted",
		zap.Int64("account_id", acct.ID),
		zap.Bool("balance", u.Balance != nil),
		zap.Bool("equity", u.Equity != nil),
		zap.Bool("margin", u.Margin != nil),
		zap.Bool("account_type", u.AccountType != nil),
	)
	e.publish(events.New(events.TypeAccountAdjusted, acct.ID, acct))
	return acct, nil
}

func (e *Engine) afterClose(ctx context.Context, path string, t model.Trade, acct model.Account) {
	e.log.Info("trade closed",
		zap.String("path", path),
		zap.Int64("trade_id", t.ID),
		zap.Int64("account_id", t.AccountID),
		zap.String("profit", t.Profit.String()),
		zap.String("forced_outcome", string(t.ForcedOutcome)),
		zap.String("balance", acct.Balance.String()),
	)
	e.metrics.TradeClosed(path, t.ForcedOutcome, t.Profit)
	if e.journal != nil {
		if err := e.journal.Record(ctx, journal.FromTrade(t, path)); err != nil {
			e.log.Warn("journal record failed", zap.Int64("trade_id", t.ID), zap.Error(err))
		}
	}
	typ := events.TypeTradeClosed
	if path == journal.PathSettle {
		typ = events.TypeTradeSettled
	}
	e.publish(events.New(typ, t.AccountID, map[string]any{
		"trade":       t,
		"new_balance": acct.Balance,
		"new_equity":  acct.Equity,
	}))
}

func (e *Engine) rejected(path string, tradeID int64, err error) {
	kind := apperr.KindOf(err)
	e.metrics.CloseRejected(path, kind.Code())
	if kind == apperr.KindInternal {
		e.log.Error("trade close failed", zap.String("path", path), zap.Int64("trade_id", tradeID), zap.Error(err))
		return
	}
	e.log.Debug("trade close rejected", zap.String("path", path), zap.Int64("trade_id", tradeID), zap.String("code", kind.Code()))
}

func (e *Engine) publish(evt events.Event) {
	if e.bus != nil {
		e.bus.Publish(evt)
	}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}
