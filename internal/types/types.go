package types

import "strings"

type TradeSide string

type TradeStatus string

type Outcome string

type Role string

type AccountType string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

const (
	OutcomeNone Outcome = "NONE"
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	AccountTypeDemo AccountType = "demo"
	AccountTypeReal AccountType = "real"
)

func ParseTradeSide(s string) (TradeSide, bool) {
	side := TradeSide(strings.ToLower(strings.TrimSpace(s)))
	return side, side.Valid()
}

func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Direction is +1 for buy and -1 for sell. It is 0 for anything else.
func (s TradeSide) Direction() int64 {
	switch s {
	case TradeSideBuy:
		return 1
	case TradeSideSell:
		return -1
	}
	return 0
}

func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	return o, o.Valid()
}

func (o Outcome) Valid() bool {
	return o == OutcomeNone || o == OutcomeWin || o == OutcomeLoss
}

// Decisive reports whether o names a definite result, i.e. WIN or LOSS.
func (o Outcome) Decisive() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

func ParseAccountType(s string) (AccountType, bool) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

func (t AccountType) Valid() bool {
	return t == AccountTypeDemo || t == AccountTypeReal
}

var roleRank = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether a holder of r may perform an operation that
// requires the given role. Unknown roles satisfy nothing.
func (r Role) Satisfies(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	need, ok := roleRank[required]
	if !ok {
		return false
	}
	return have >= need
}
