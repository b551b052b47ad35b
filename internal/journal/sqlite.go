// Package journal keeps a local SQLite record of every committed trade close,
// for operators to inspect without touching the primary database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lv-ledger/internal/model"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const (
	PathClose  = "close"
	PathSettle = "settle"
)

var ErrNotFound = errors.New("journal: trade not found")

type Record struct {
	TradeID       int64           `json:"trade_id"`
	AccountID     int64           `json:"account_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Volume        decimal.Decimal `json:"volume"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	ClosePrice    decimal.Decimal `json:"close_price"`
	Profit        decimal.Decimal `json:"profit"`
	ForcedOutcome string          `json:"forced_outcome"`
	Path          string          `json:"path"`
	OpenTime      time.Time       `json:"open_time"`
	CloseTime     time.Time       `json:"close_time"`
}

// FromTrade builds a record from a closed trade.
func FromTrade(t model.Trade, path string) Record {
	rec := Record{
		TradeID:       t.ID,
		AccountID:     t.AccountID,
		Symbol:        t.Symbol,
		Side:          string(t.Side),
		Volume:        t.Volume,
		EntryPrice:    t.EntryPrice,
		Profit:        t.Profit,
		ForcedOutcome: string(t.ForcedOutcome),
		Path:          path,
		OpenTime:      t.OpenTime.UTC(),
	}
	if t.ClosePrice != nil {
		rec.ClosePrice = *t.ClosePrice
	}
	if t.CloseTime != nil {
		rec.CloseTime = t.CloseTime.UTC()
	}
	return rec
}

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Record(ctx context.Context, r Record) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO closed_trades
		(trade_id, account_id, symbol, side, volume, entry_price, close_price, profit, forced_outcome, path, open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TradeID, r.AccountID, r.Symbol, r.Side, r.Volume.String(), r.EntryPrice.String(),
		r.ClosePrice.String(), r.Profit.String(), r.ForcedOutcome, r.Path, r.OpenTime, r.CloseTime,
	)
	return err
}

func (j *SQLite) Get(ctx context.Context, tradeID int64) (Record, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT trade_id, account_id, symbol, side, volume, entry_price, close_price, profit, forced_outcome, path, open_time, close_time
		FROM closed_trades WHERE trade_id = ?`, tradeID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}

// List returns the most recently closed trades first.
func (j *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, account_id, symbol, side, volume, entry_price, close_price, profit, forced_outcome, path, open_time, close_time
		FROM closed_trades ORDER BY close_time DESC, trade_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var r Record
	var volume, entry, closePrice, profit string
	err := row.Scan(&r.TradeID, &r.AccountID, &r.Symbol, &r.Side, &volume, &entry, &closePrice, &profit, &r.ForcedOutcome, &r.Path, &r.OpenTime, &r.CloseTime)
	if err != nil {
		return r, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&r.Volume, volume}, {&r.EntryPrice, entry}, {&r.ClosePrice, closePrice}, {&r.Profit, profit}} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return r, err
		}
		*f.dst = v
	}
	return r, nil
}

// Summarize totals the realized profit of recs by path.
func Summarize(recs []Record) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range recs {
		out[r.Path] = out[r.Path].Add(r.Profit)
	}
	return out
}
