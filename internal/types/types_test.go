package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTradeSide(t *testing.T) {
	t.Parallel()

	side, ok := ParseTradeSide(" BUY ")
	assert.True(t, ok)
	assert.Equal(t, TradeSideBuy, side)
	assert.Equal(t, int64(1), side.Direction())

	side, ok = ParseTradeSide("sell")
	assert.True(t, ok)
	assert.Equal(t, int64(-1), side.Direction())

	_, ok = ParseTradeSide("hold")
	assert.False(t, ok)
	assert.Equal(t, int64(0), TradeSide("hold").Direction())
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"win", "LOSS", "None"} {
		o, ok := ParseOutcome(in)
		assert.True(t, ok, in)
		assert.True(t, o.Valid())
	}
	_, ok := ParseOutcome("DRAW")
	assert.False(t, ok)

	assert.True(t, OutcomeWin.Decisive())
	assert.True(t, OutcomeLoss.Decisive())
	assert.False(t, OutcomeNone.Decisive())
}

func TestRoleSatisfies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		have, need Role
		want       bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{Role("Admin"), RoleAdmin, false},
		{Role(""), RoleUser, false},
		{RoleAdmin, Role("root"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.have.Satisfies(tt.need), "%q satisfies %q", tt.have, tt.need)
	}
}

func TestParseAccountType(t *testing.T) {
	t.Parallel()

	at, ok := ParseAccountType("Real")
	assert.True(t, ok)
	assert.Equal(t, AccountTypeReal, at)

	_, ok = ParseAccountType("live")
	assert.False(t, ok)
}
