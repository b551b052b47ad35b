package settlement

import (
	"testing"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceCloseNatural(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		side   types.TradeSide
		entry  string
		close  string
		volume string
		want   string
	}{
		{"buy gains", types.TradeSideBuy, "1.1000", "1.1050", "1", "500"},
		{"sell loses on rise", types.TradeSideSell, "1.2000", "1.2100", "0.5", "-500"},
		{"sell gains on fall", types.TradeSideSell, "1.2000", "1.1900", "2", "2000"},
		{"buy loses on fall", types.TradeSideBuy, "1.3000", "1.2990", "0.1", "-10"},
		{"flat", types.TradeSideBuy, "1.1000", "1.1000", "1", "0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PriceClose(tt.side, d(tt.entry), d(tt.close), d(tt.volume), types.OutcomeNone)
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestPriceCloseForcedOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		side   types.TradeSide
		entry  string
		close  string
		forced types.Outcome
		want   string
	}{
		{"win on flat uses fallback", types.TradeSideBuy, "1.1000", "1.1000", types.OutcomeWin, "100"},
		{"loss on flat uses fallback", types.TradeSideBuy, "1.1000", "1.1000", types.OutcomeLoss, "-100"},
		{"win flips a loss", types.TradeSideSell, "1.2000", "1.2100", types.OutcomeWin, "1000"},
		{"win keeps a gain", types.TradeSideBuy, "1.1000", "1.1050", types.OutcomeWin, "500"},
		{"loss flips a gain", types.TradeSideBuy, "1.1000", "1.1050", types.OutcomeLoss, "-500"},
		{"loss keeps a loss", types.TradeSideSell, "1.2000", "1.2100", types.OutcomeLoss, "-1000"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PriceClose(tt.side, d(tt.entry), d(tt.close), d("1"), tt.forced)
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestForcedOutcomeSignProperty(t *testing.T) {
	t.Parallel()

	prices := []string{"0.9000", "1.0995", "1.1000", "1.1005", "1.5000"}
	for _, side := range []types.TradeSide{types.TradeSideBuy, types.TradeSideSell} {
		for _, p := range prices {
			win, err := PriceClose(side, d("1.1000"), d(p), d("0.3"), types.OutcomeWin)
			require.NoError(t, err)
			assert.False(t, win.IsNegative())
			assert.True(t, win.GreaterThan(decimal.Zero))

			loss, err := PriceClose(side, d("1.1000"), d(p), d("0.3"), types.OutcomeLoss)
			require.NoError(t, err)
			assert.True(t, loss.LessThan(decimal.Zero))
		}
	}
}

func TestPriceCloseRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := PriceClose(types.TradeSide("hold"), d("1"), d("2"), d("1"), types.OutcomeNone)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = PriceClose(types.TradeSideBuy, d("1"), d("2"), d("1"), types.Outcome("DRAW"))
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestAdminSettle(t *testing.T) {
	t.Parallel()

	got, err := AdminSettle(types.OutcomeLoss, d("250"))
	require.NoError(t, err)
	assert.True(t, d("-250").Equal(got))

	got, err = AdminSettle(types.OutcomeWin, d("250"))
	require.NoError(t, err)
	assert.True(t, d("250").Equal(got))

	_, err = AdminSettle(types.OutcomeNone, d("250"))
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}
