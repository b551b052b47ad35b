// Package store declares the persistence contract shared by the Postgres and
// in-memory backends. Every method re-reads current state; nothing is cached
// between calls.
package store

import (
	"context"
	"errors"
	"time"

	"lv-ledger/internal/model"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("store: not found")
	ErrDuplicateUsername  = errors.New("store: username already exists")
	ErrDuplicateLoginCode = errors.New("store: login code already exists")
	ErrTradeNotOpen       = errors.New("store: trade is not open")
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

type Page struct {
	Skip  int
	Limit int
}

// NewPage validates skip/limit. Limits above MaxPageLimit are clamped.
func NewPage(skip, limit int) (Page, error) {
	if skip < 0 {
		return Page{}, errors.New("skip must be >= 0")
	}
	if limit < 1 {
		return Page{}, errors.New("limit must be >= 1")
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Skip: skip, Limit: limit}, nil
}

// AccountUpdate overwrites only the non-nil fields.
type AccountUpdate struct {
	Balance     *decimal.Decimal
	Equity      *decimal.Decimal
	Margin      *decimal.Decimal
	AccountType *types.AccountType
	FullName    *string
	Broker      *string
}

func (u AccountUpdate) Empty() bool {
	return u.Balance == nil && u.Equity == nil && u.Margin == nil &&
		u.AccountType == nil && u.FullName == nil && u.Broker == nil
}

// TradeClose is the frozen outcome written by the OPEN to CLOSED transition.
type TradeClose struct {
	TradeID       int64
	ClosePrice    decimal.Decimal
	Profit        decimal.Decimal
	ForcedOutcome types.Outcome
	CloseTime     time.Time
}

type Queries interface {
	CreateAccount(ctx context.Context, a model.Account) (model.Account, error)
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
	LoginCodeExists(ctx context.Context, code string) (bool, error)
	ListAccounts(ctx context.Context, p Page) ([]model.Account, error)
	UpdateAccount(ctx context.Context, id int64, u AccountUpdate) (model.Account, error)
	// ApplyRealizedProfit adds profit to both balance and equity.
	ApplyRealizedProfit(ctx context.Context, accountID int64, profit decimal.Decimal) (model.Account, error)

	CreateTrade(ctx context.Context, t model.Trade) (model.Trade, error)
	// GetTradeForUpdate locks the trade row until the surrounding transaction ends.
	GetTradeForUpdate(ctx context.Context, id int64) (model.Trade, error)
	// GetOwnedTradeForUpdate is GetTradeForUpdate restricted to one owner.
	// A trade held by another account is ErrNotFound.
	GetOwnedTradeForUpdate(ctx context.Context, id, accountID int64) (model.Trade, error)
	ListTradesByAccount(ctx context.Context, accountID int64) ([]model.Trade, error)
	ListTrades(ctx context.Context, p Page) ([]model.Trade, error)
	// CloseTrade applies c only while the trade is still OPEN and returns
	// ErrTradeNotOpen otherwise.
	CloseTrade(ctx context.Context, c TradeClose) (model.Trade, error)
	SetForcedOutcome(ctx context.Context, id int64, o types.Outcome) (model.Trade, error)

	GetAppSettings(ctx context.Context) (model.AppSettings, error)
	// GetAppSettingsForUpdate locks the settings row, creating it with the
	// defaults first when it does not exist yet.
	GetAppSettingsForUpdate(ctx context.Context) (model.AppSettings, error)
	UpsertAppSettings(ctx context.Context, s model.AppSettings) (model.AppSettings, error)
}

type Store interface {
	Queries
	// InTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close()
}
