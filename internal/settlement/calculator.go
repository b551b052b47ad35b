// Package settlement computes the realized profit of a trade close. It has no
// side effects and never touches the store.
package settlement

import (
	"lv-ledger/internal/apperr"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
)

// ContractSize is the standard lot multiplier applied to volume.
var ContractSize = decimal.NewFromInt(100000)

// forcedFallback is the profit magnitude used when a forced outcome meets a
// zero raw result.
var forcedFallback = decimal.NewFromInt(100)

// RawProfit is (close - entry) * volume * direction * ContractSize.
func RawProfit(side types.TradeSide, entry, closePrice, volume decimal.Decimal) (decimal.Decimal, error) {
	dir := side.Direction()
	if dir == 0 {
		return decimal.Zero, apperr.InvalidArgument("side must be buy or sell")
	}
	return closePrice.Sub(entry).Mul(volume).Mul(decimal.NewFromInt(dir)).Mul(ContractSize), nil
}

// PriceClose computes the profit of a price-driven close. A forced outcome
// overrides the sign of the raw result: WIN yields abs(raw) and LOSS -abs(raw),
// with a fixed 100 magnitude when raw is zero.
func PriceClose(side types.TradeSide, entry, closePrice, volume decimal.Decimal, forced types.Outcome) (decimal.Decimal, error) {
	raw, err := RawProfit(side, entry, closePrice, volume)
	if err != nil {
		return decimal.Zero, err
	}
	switch forced {
	case types.OutcomeNone, "":
		return raw, nil
	case types.OutcomeWin:
		if raw.IsZero() {
			return forcedFallback, nil
		}
		return raw.Abs(), nil
	case types.OutcomeLoss:
		if raw.IsZero() {
			return forcedFallback.Neg(), nil
		}
		return raw.Abs().Neg(), nil
	}
	return decimal.Zero, apperr.InvalidArgument("forced outcome must be WIN, LOSS or NONE")
}

// AdminSettle returns +amount for WIN and -amount for LOSS. The amount is
// taken as given.
func AdminSettle(outcome types.Outcome, amount decimal.Decimal) (decimal.Decimal, error) {
	switch outcome {
	case types.OutcomeWin:
		return amount, nil
	case types.OutcomeLoss:
		return amount.Neg(), nil
	}
	return decimal.Zero, apperr.InvalidArgument("outcome must be WIN or LOSS")
}
