package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultFullName     = "New User"
	DefaultBroker       = "MetaQuotes-Demo"
	DefaultCodeAttempts = 10
)

var DefaultBalance = decimal.NewFromInt(10000)

type Service struct {
	store    store.Store
	log      *zap.Logger
	codes    CodeSource
	attempts int
}

type Option func(*Service)

// WithCodeAttempts bounds how many login codes are tried before Create gives
// up with Conflict.
func WithCodeAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithCodeSource(src CodeSource) Option { return func(s *Service) { s.codes = src } }

func NewService(st store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: st, log: log, codes: RandomLoginCode, attempts: DefaultCodeAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	Username    string           `json:"username"`
	Password    string           `json:"password"`
	FullName    string           `json:"full_name"`
	Broker      string           `json:"broker"`
	AccountType string           `json:"account_type"`
	Balance     *decimal.Decimal `json:"balance"`
}

// Register creates a user-role account. It is open to anyone.
func (s *Service) Register(ctx context.Context, in CreateInput) (model.Account, error) {
	return s.create(ctx, in, types.RoleUser)
}

// Create is the administrator form of Register and can grant any role.
func (s *Service) Create(ctx context.Context, in CreateInput, role types.Role) (model.Account, error) {
	if !role.Valid() {
		return model.Account{}, apperr.InvalidArgument("role must be user or admin")
	}
	return s.create(ctx, in, role)
}

func (s *Service) create(ctx context.Context, in CreateInput, role types.Role) (model.Account, error) {
	acct, err := s.prepare(in, role)
	if err != nil {
		return model.Account{}, err
	}
	if _, err := s.store.GetAccountByUsername(ctx, acct.Username); err == nil {
		return model.Account{}, apperr.Conflict("username already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Account{}, fmt.Errorf("lookup username: %w", err)
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return model.Account{}, fmt.Errorf("generate login code: %w", err)
		}
		if !validLoginCode(code) {
			return model.Account{}, fmt.Errorf("generate login code: malformed code %q", code)
		}
		taken, err := s.store.LoginCodeExists(ctx, code)
		if err != nil {
			return model.Account{}, fmt.Errorf("check login code: %w", err)
		}
		if taken {
			s.log.Debug("login code collision", zap.Int("attempt", attempt))
			continue
		}
		acct.LoginCode = code
		created, err := s.store.CreateAccount(ctx, acct)
		switch {
		case errors.Is(err, store.ErrDuplicateLoginCode):
			s.log.Debug("login code collision on insert", zap.Int("attempt", attempt))
			continue
		case errors.Is(err, store.ErrDuplicateUsername):
			return model.Account{}, apperr.Conflict("username already registered")
		case err != nil:
			return model.Account{}, fmt.Errorf("create account: %w", err)
		}
		s.log.Info("account created",
			zap.Int64("account_id", created.ID),
			zap.String("username", created.Username),
			zap.String("role", string(created.Role)),
			zap.String("account_type", string(created.AccountType)),
		)
		return created, nil
	}
	s.log.Warn("login code space exhausted", zap.Int("attempts", s.attempts))
	return model.Account{}, apperr.Conflict("could not allocate a unique login code")
}

func (s *Service) prepare(in CreateInput, role types.Role) (model.Account, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return model.Account{}, apperr.InvalidArgument("username and password required")
	}
	accountType := types.AccountTypeDemo
	if strings.TrimSpace(in.AccountType) != "" {
		at, ok := types.ParseAccountType(in.AccountType)
		if !ok {
			return model.Account{}, apperr.InvalidArgument("account_type must be demo or real")
		}
		accountType = at
	}
	balance := DefaultBalance
	if in.Balance != nil {
		if in.Balance.IsNegative() {
			return model.Account{}, apperr.InvalidArgument("balance must be >= 0")
		}
		balance = *in.Balance
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	return model.Account{
		Username:     username,
		PasswordHash: hash,
		FullName:     orDefault(in.FullName, DefaultFullName),
		Broker:       orDefault(in.Broker, DefaultBroker),
		AccountType:  accountType,
		Role:         role,
		Balance:      balance,
		Equity:       balance,
		Margin:       decimal.Zero,
	}, nil
}

// EnsureAdmin creates an admin account with the given credentials unless the
// username already exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (model.Account, bool, error) {
	existing, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		if existing.Role != types.RoleAdmin {
			s.log.Warn("bootstrap admin username belongs to a non-admin account", zap.String("username", existing.Username))
		}
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Account{}, false, err
	}
	acct, err := s.Create(ctx, CreateInput{Username: username, Password: password, FullName: "Administrator"}, types.RoleAdmin)
	if err != nil {
		return model.Account{}, false, err
	}
	return acct, true, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return acct, apperr.NotFound("account not found")
	}
	return acct, err
}

func (s *Service) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	acct, err := s.store.GetAccountByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return acct, apperr.NotFound("account not found")
	}
	return acct, err
}

func (s *Service) List(ctx context.Context, p store.Page) ([]model.Account, error) {
	return s.store.ListAccounts(ctx, p)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
