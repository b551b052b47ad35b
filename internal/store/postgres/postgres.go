package postgres

import (
	"context"
	"errors"
	"time"

	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const accountColumns = "id, username, login_code, password_hash, full_name, broker, account_type, role, balance, equity, margin, created_at"

const tradeColumns = "id, account_id, symbol, side, volume, entry_price, close_price, sl, tp, profit, swap, commission, status, forced_outcome, open_time, close_time"

const settingsColumns = "app_name, logo_url, theme_primary, theme_secondary, updated_at"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	*queries
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: &queries{db: pool}, pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

type queries struct {
	db dbtx
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (model.Account, error) {
	var a model.Account
	var accountType, role string
	err := row.Scan(&a.ID, &a.Username, &a.LoginCode, &a.PasswordHash, &a.FullName, &a.Broker, &accountType, &role, &a.Balance, &a.Equity, &a.Margin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, store.ErrNotFound
		}
		return a, err
	}
	a.AccountType = types.AccountType(accountType)
	a.Role = types.Role(role)
	return a, nil
}

func scanTrade(row scanner) (model.Trade, error) {
	var t model.Trade
	var side, status, forced string
	var closePrice, sl, tp *decimal.Decimal
	var closeTime *time.Time
	err := row.Scan(&t.ID, &t.AccountID, &t.Symbol, &side, &t.Volume, &t.EntryPrice, &closePrice, &sl, &tp, &t.Profit, &t.Swap, &t.Commission, &status, &forced, &t.OpenTime, &closeTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, store.ErrNotFound
		}
		return t, err
	}
	t.Side = types.TradeSide(side)
	t.Status = types.TradeStatus(status)
	t.ForcedOutcome = types.Outcome(forced)
	t.ClosePrice = closePrice
	t.StopLoss = sl
	t.TakeProfit = tp
	t.CloseTime = closeTime
	return t, nil
}

func collect[T any](rows pgx.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *queries) CreateAccount(ctx context.Context, a model.Account) (model.Account, error) {
	row := q.db.QueryRow(ctx, "insert into accounts (username, login_code, password_hash, full_name, broker, account_type, role, balance, equity, margin) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) returning "+accountColumns,
		a.Username, a.LoginCode, a.PasswordHash, a.FullName, a.Broker, string(a.AccountType), string(a.Role), a.Balance, a.Equity, a.Margin)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "accounts_username_key":
				return created, store.ErrDuplicateUsername
			case "accounts_login_code_key":
				return created, store.ErrDuplicateLoginCode
			}
		}
		return created, err
	}
	return created, nil
}

func (q *queries) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	return scanAccount(q.db.QueryRow(ctx, "select "+accountColumns+" from accounts where id = $1", id))
}

func (q *queries) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	return scanAccount(q.db.QueryRow(ctx, "select "+accountColumns+" from accounts where username = $1", username))
}

func (q *queries) LoginCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, "select exists(select 1 from accounts where login_code = $1)", code).Scan(&exists)
	return exists, err
}

func (q *queries) ListAccounts(ctx context.Context, p store.Page) ([]model.Account, error) {
	rows, err := q.db.Query(ctx, "select "+accountColumns+" from accounts order by id asc offset $1 limit $2", p.Skip, p.Limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

func (q *queries) UpdateAccount(ctx context.Context, id int64, u store.AccountUpdate) (model.Account, error) {
	var accountType *string
	if u.AccountType != nil {
		v := string(*u.AccountType)
		accountType = &v
	}
	row := q.db.QueryRow(ctx, `
		update accounts set
			balance = coalesce($2::numeric, balance),
			equity = coalesce($3::numeric, equity),
			margin = coalesce($4::numeric, margin),
			account_type = coalesce($5::text, account_type),
			full_name = coalesce($6::text, full_name),
			broker = coalesce($7::text, broker)
		where id = $1
		returning `+accountColumns,
		id, u.Balance, u.Equity, u.Margin, accountType, u.FullName, u.Broker)
	return scanAccount(row)
}

func (q *queries) ApplyRealizedProfit(ctx context.Context, accountID int64, profit decimal.Decimal) (model.Account, error) {
	row := q.db.QueryRow(ctx, "update accounts set balance = balance + $2::numeric, equity = equity + $2::numeric where id = $1 returning "+accountColumns, accountID, profit)
	return scanAccount(row)
}

func (q *queries) CreateTrade(ctx context.Context, t model.Trade) (model.Trade, error) {
	row := q.db.QueryRow(ctx, "insert into trades (account_id, symbol, side, volume, entry_price, sl, tp, profit, swap, commission, status, forced_outcome, open_time) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) returning "+tradeColumns,
		t.AccountID, t.Symbol, string(t.Side), t.Volume, t.EntryPrice, t.StopLoss, t.TakeProfit, t.Profit, t.Swap, t.Commission, string(t.Status), string(t.ForcedOutcome), t.OpenTime)
	created, err := scanTrade(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return created, store.ErrNotFound
		}
		return created, err
	}
	return created, nil
}

func (q *queries) GetTradeForUpdate(ctx context.Context, id int64) (model.Trade, error) {
	return scanTrade(q.db.QueryRow(ctx, "select "+tradeColumns+" from trades where id = $1 for update", id))
}

func (q *queries) GetOwnedTradeForUpdate(ctx context.Context, id, accountID int64) (model.Trade, error) {
	return scanTrade(q.db.QueryRow(ctx, "select "+tradeColumns+" from trades where id = $1 and account_id = $2 for update", id, accountID))
}

func (q *queries) ListTradesByAccount(ctx context.Context, accountID int64) ([]model.Trade, error) {
	rows, err := q.db.Query(ctx, "select "+tradeColumns+" from trades where account_id = $1 order by open_time desc, id desc", accountID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTrade)
}

func (q *queries) ListTrades(ctx context.Context, p store.Page) ([]model.Trade, error) {
	rows, err := q.db.Query(ctx, "select "+tradeColumns+" from trades order by open_time desc, id desc offset $1 limit $2", p.Skip, p.Limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTrade)
}

func (q *queries) CloseTrade(ctx context.Context, c store.TradeClose) (model.Trade, error) {
	row := q.db.QueryRow(ctx, "update trades set close_price = $2, profit = $3, forced_outcome = $4, status = 'CLOSED', close_time = $5 where id = $1 and status = 'OPEN' returning "+tradeColumns,
		c.TradeID, c.ClosePrice, c.Profit, string(c.ForcedOutcome), c.CloseTime)
	t, err := scanTrade(row)
	if errors.Is(err, store.ErrNotFound) {
		return t, store.ErrTradeNotOpen
	}
	return t, err
}

func (q *queries) SetForcedOutcome(ctx context.Context, id int64, o types.Outcome) (model.Trade, error) {
	return scanTrade(q.db.QueryRow(ctx, "update trades set forced_outcome = $2 where id = $1 returning "+tradeColumns, id, string(o)))
}

func (q *queries) GetAppSettings(ctx context.Context) (model.AppSettings, error) {
	var s model.AppSettings
	err := q.db.QueryRow(ctx, "select "+settingsColumns+" from app_settings where id = 1").Scan(&s.AppName, &s.LogoURL, &s.ThemePrimary, &s.ThemeSecondary, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, store.ErrNotFound
	}
	return s, err
}

func (q *queries) GetAppSettingsForUpdate(ctx context.Context) (model.AppSettings, error) {
	def := model.DefaultAppSettings()
	_, err := q.db.Exec(ctx, `
		insert into app_settings (id, app_name, logo_url, theme_primary, theme_secondary, updated_at)
		values (1, $1, $2, $3, $4, now())
		on conflict (id) do nothing`,
		def.AppName, def.LogoURL, def.ThemePrimary, def.ThemeSecondary)
	if err != nil {
		return model.AppSettings{}, err
	}
	var s model.AppSettings
	err = q.db.QueryRow(ctx, "select "+settingsColumns+" from app_settings where id = 1 for update").Scan(&s.AppName, &s.LogoURL, &s.ThemePrimary, &s.ThemeSecondary, &s.UpdatedAt)
	return s, err
}

func (q *queries) UpsertAppSettings(ctx context.Context, in model.AppSettings) (model.AppSettings, error) {
	var s model.AppSettings
	err := q.db.QueryRow(ctx, `
		insert into app_settings (id, app_name, logo_url, theme_primary, theme_secondary, updated_at)
		values (1, $1, $2, $3, $4, now())
		on conflict (id) do update set
			app_name = excluded.app_name,
			logo_url = excluded.logo_url,
			theme_primary = excluded.theme_primary,
			theme_secondary = excluded.theme_secondary,
			updated_at = excluded.updated_at
		returning `+settingsColumns,
		in.AppName, in.LogoURL, in.ThemePrimary, in.ThemeSecondary).Scan(&s.AppName, &s.LogoURL, &s.ThemePrimary, &s.ThemeSecondary, &s.UpdatedAt)
	return s, err
}
