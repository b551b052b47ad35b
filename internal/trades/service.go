package trades

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/events"
	"lv-ledger/internal/metrics"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(evt events.Event)
}

type Service struct {
	store   store.Store
	log     *zap.Logger
	metrics *metrics.Collector
	bus     Publisher
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(c *metrics.Collector) Option { return func(s *Service) { s.metrics = c } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.bus = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: st, log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PlaceInput struct {
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	Volume     decimal.Decimal  `json:"volume"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	StopLoss   *decimal.Decimal `json:"sl"`
	TakeProfit *decimal.Decimal `json:"tp"`
}

// Place opens a trade for accountID. No balance or margin check is applied.
func (s *Service) Place(ctx context.Context, accountID int64, in PlaceInput) (model.Trade, error) {
	t, err := s.prepare(accountID, in)
	if err != nil {
		return model.Trade{}, err
	}
	created, err := s.store.CreateTrade(ctx, t)
	if errors.Is(err, store.ErrNotFound) {
		return model.Trade{}, apperr.NotFound("account not found")
	}
	if err != nil {
		return model.Trade{}, fmt.Errorf("create trade: %w", err)
	}

	s.log.Info("trade opened",
		zap.Int64("trade_id", created.ID),
		zap.Int64("account_id", accountID),
		zap.String("symbol", created.Symbol),
		zap.String("side", string(created.Side)),
		zap.String("volume", created.Volume.String()),
		zap.String("entry_price", created.EntryPrice.String()),
	)
	s.metrics.TradeOpened()
	if s.bus != nil {
		s.bus.Publish(events.New(events.TypeTradeOpened, accountID, created))
	}
	return created, nil
}

func (s *Service) prepare(accountID int64, in PlaceInput) (model.Trade, error) {
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		return model.Trade{}, apperr.InvalidArgument("symbol is required")
	}
	side, ok := types.ParseTradeSide(in.Side)
	if !ok {
		return model.Trade{}, apperr.InvalidArgument("side must be buy or sell")
	}
	if !in.Volume.IsPositive() {
		return model.Trade{}, apperr.InvalidArgument("volume must be greater than 0")
	}
	if !in.EntryPrice.IsPositive() {
		return model.Trade{}, apperr.InvalidArgument("entry_price must be greater than 0")
	}
	if in.StopLoss != nil && in.StopLoss.IsNegative() {
		return model.Trade{}, apperr.InvalidArgument("sl must be >= 0")
	}
	if in.TakeProfit != nil && in.TakeProfit.IsNegative() {
		return model.Trade{}, apperr.InvalidArgument("tp must be >= 0")
	}
	return model.Trade{
		AccountID:     accountID,
		Symbol:        symbol,
		Side:          side,
		Volume:        in.Volume,
		EntryPrice:    in.EntryPrice,
		StopLoss:      in.StopLoss,
		TakeProfit:    in.TakeProfit,
		Profit:        decimal.Zero,
		Swap:          decimal.Zero,
		Commission:    decimal.Zero,
		Status:        types.TradeStatusOpen,
		ForcedOutcome: types.OutcomeNone,
		OpenTime:      s.now(),
	}, nil
}

func (s *Service) ListOwn(ctx context.Context, accountID int64) ([]model.Trade, error) {
	return s.store.ListTradesByAccount(ctx, accountID)
}

func (s *Service) ListAll(ctx context.Context, p store.Page) ([]model.Trade, error) {
	return s.store.ListTrades(ctx, p)
}
