package model

import (
	"time"

	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
)

type Trade struct {
	ID            int64             `json:"id"`
	AccountID     int64             `json:"account_id"`
	Symbol        string            `json:"symbol"`
	Side          types.TradeSide   `json:"side"`
	Volume        decimal.Decimal   `json:"volume"`
	EntryPrice    decimal.Decimal   `json:"entry_price"`
	ClosePrice    *decimal.Decimal  `json:"close_price"`
	StopLoss      *decimal.Decimal  `json:"sl"`
	TakeProfit    *decimal.Decimal  `json:"tp"`
	Profit        decimal.Decimal   `json:"profit"`
	Swap          decimal.Decimal   `json:"swap"`
	Commission    decimal.Decimal   `json:"commission"`
	Status        types.TradeStatus `json:"status"`
	ForcedOutcome types.Outcome     `json:"forced_outcome"`
	OpenTime      time.Time         `json:"open_time"`
	CloseTime     *time.Time        `json:"close_time"`
}

func (t Trade) IsOpen() bool {
	return t.Status == types.TradeStatusOpen
}
