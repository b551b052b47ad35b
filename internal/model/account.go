package model

import (
	"time"

	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID           int64             `json:"id"`
	Username     string            `json:"username"`
	LoginCode    string            `json:"login_code"`
	PasswordHash string            `json:"-"`
	FullName     string            `json:"full_name"`
	Broker       string            `json:"broker"`
	AccountType  types.AccountType `json:"account_type"`
	Role         types.Role        `json:"role"`
	Balance      decimal.Decimal   `json:"balance"`
	Equity       decimal.Decimal   `json:"equity"`
	Margin       decimal.Decimal   `json:"margin"`
	CreatedAt    time.Time         `json:"created_at"`
}
