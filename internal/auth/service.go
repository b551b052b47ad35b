// Package auth issues and verifies bearer tokens and decides whether an
// identity may perform an operation. Roles are re-read from the store on
// every request.
package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const TokenType = "bearer"

type AccountReader interface {
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
}

type Identity struct {
	AccountID int64      `json:"account_id"`
	Username  string     `json:"username"`
	Role      types.Role `json:"role"`
}

type Service struct {
	accounts AccountReader
	issuer   string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewService(accounts AccountReader, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{
		accounts: accounts,
		issuer:   issuer,
		secret:   secret,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// IssueToken checks the credentials and signs a token for the account.
func (s *Service) IssueToken(ctx context.Context, username, password string) (string, error) {
	acct, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.Unauthorized("incorrect username or password")
		}
		return "", err
	}
	if !CheckPassword(acct.PasswordHash, password) {
		return "", apperr.Unauthorized("incorrect username or password")
	}
	return s.signToken(acct.ID)
}

func (s *Service) signToken(accountID int64) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Issuer:    s.issuer,
		Subject:   strconv.FormatInt(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// VerifyToken checks signature, expiry and issuer and returns the account id
// the token was issued for.
func (s *Service) VerifyToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return 0, apperr.Wrap(apperr.KindUnauthorized, "invalid token", err)
	}
	if claims.Issuer != s.issuer {
		return 0, apperr.Unauthorized("invalid token issuer")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Unauthorized("invalid token subject")
	}
	return id, nil
}

// Authenticate resolves a bearer token to the current identity of its account.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	id, err := s.VerifyToken(token)
	if err != nil {
		return Identity{}, err
	}
	acct, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, apperr.Unauthorized("account no longer exists")
		}
		return Identity{}, err
	}
	return Identity{AccountID: acct.ID, Username: acct.Username, Role: acct.Role}, nil
}

func (s *Service) Authorize(id Identity, required types.Role) bool {
	return id.Role.Satisfies(required)
}
