package accounts

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/store/memstore"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sequence returns the given codes in order, then fails.
func sequence(codes ...string) CodeSource {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", errors.New("sequence exhausted")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

func TestRegisterAppliesDefaults(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewService(st, zap.NewNop())

	acct, err := svc.Register(context.Background(), CreateInput{Username: "  bob ", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "bob", acct.Username)
	assert.Len(t, acct.LoginCode, LoginCodeLength)
	assert.True(t, validLoginCode(acct.LoginCode))
	assert.Equal(t, DefaultFullName, acct.FullName)
	assert.Equal(t, DefaultBroker, acct.Broker)
	assert.Equal(t, types.AccountTypeDemo, acct.AccountType)
	assert.Equal(t, types.RoleUser, acct.Role)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, acct.Equity.Equal(acct.Balance))
	assert.True(t, acct.Margin.IsZero())
	assert.True(t, auth.CheckPassword(acct.PasswordHash, "pw"))
}

func TestCreateHonoursInput(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	balance := decimal.RequireFromString("2500.50")

	acct, err := svc.Create(context.Background(), CreateInput{
		Username:    "carol",
		Password:    "pw",
		FullName:    "Carol C",
		Broker:      "Acme",
		AccountType: "REAL",
		Balance:     &balance,
	}, types.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, types.RoleAdmin, acct.Role)
	assert.Equal(t, types.AccountTypeReal, acct.AccountType)
	assert.Equal(t, "Carol C", acct.FullName)
	assert.Equal(t, "Acme", acct.Broker)
	assert.True(t, acct.Balance.Equal(balance))
	assert.True(t, acct.Equity.Equal(balance))
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()
	negative := decimal.NewFromInt(-1)

	cases := map[string]CreateInput{
		"missing username": {Password: "pw"},
		"missing password": {Username: "dave"},
		"bad account type": {Username: "dave", Password: "pw", AccountType: "gold"},
		"negative balance": {Username: "dave", Password: "pw", Balance: &negative},
	}
	for name, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), name)
	}

	_, err := svc.Create(ctx, CreateInput{Username: "dave", Password: "pw"}, types.Role("root"))
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestDuplicateUsernameConflicts(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, CreateInput{Username: "erin", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, CreateInput{Username: "erin", Password: "other"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLoginCodeCollisionRetries(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	ctx := context.Background()
	_, err := st.CreateAccount(ctx, model.Account{Username: "taken", LoginCode: "111111111"})
	require.NoError(t, err)

	svc := NewService(st, zap.NewNop(), WithCodeSource(sequence("111111111", "111111111", "222222222")))
	acct, err := svc.Register(ctx, CreateInput{Username: "frank", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "222222222", acct.LoginCode)
}

func TestLoginCodeExhaustionConflicts(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	ctx := context.Background()
	_, err := st.CreateAccount(ctx, model.Account{Username: "taken", LoginCode: "111111111"})
	require.NoError(t, err)

	svc := NewService(st, zap.NewNop(),
		WithCodeAttempts(3),
		WithCodeSource(func() (string, error) { return "111111111", nil }),
	)
	_, err = svc.Register(ctx, CreateInput{Username: "gina", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = st.GetAccountByUsername(ctx, "gina")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMalformedCodeSourceIsInternal(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop(), WithCodeSource(sequence("12ab")))
	_, err := svc.Register(context.Background(), CreateInput{Username: "hal", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestRandomLoginCode(t *testing.T) {
	t.Parallel()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := RandomLoginCode()
		require.NoError(t, err)
		require.True(t, validLoginCode(code), code)
		_, err = strconv.ParseUint(code, 10, 64)
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()

	first, created, err := svc.EnsureAdmin(ctx, "root", "toor")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, types.RoleAdmin, first.Role)

	second, created, err := svc.EnsureAdmin(ctx, "root", "different")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetMissingAccount(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	_, err := svc.Get(context.Background(), 42)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListPaginates(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Register(ctx, CreateInput{Username: name, Password: "pw"})
		require.NoError(t, err)
	}
	page, err := store.NewPage(1, 1)
	require.NoError(t, err)
	got, err := svc.List(ctx, page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Username)
}
