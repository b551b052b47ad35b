package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"

	"go.uber.org/zap"
)

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// Get returns the stored settings, or the defaults when none were saved.
func (s *Service) Get(ctx context.Context) (model.AppSettings, error) {
	cur, err := s.store.GetAppSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultAppSettings(), nil
	}
	if err != nil {
		return model.AppSettings{}, fmt.Errorf("get app settings: %w", err)
	}
	return cur, nil
}

// Update fields left nil keep their current value.
type Update struct {
	AppName        *string `json:"app_name"`
	LogoURL        *string `json:"logo_url"`
	ThemePrimary   *string `json:"theme_primary"`
	ThemeSecondary *string `json:"theme_secondary"`
}

// Upsert merges u onto the locked current row in one transaction, so
// concurrent partial updates never drop each other's fields.
func (s *Service) Upsert(ctx context.Context, u Update) (model.AppSettings, error) {
	var saved model.AppSettings
	err := s.store.InTx(ctx, func(q store.Queries) error {
		cur, err := q.GetAppSettingsForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("lock app settings: %w", err)
		}
		apply(&cur.AppName, u.AppName)
		apply(&cur.LogoURL, u.LogoURL)
		apply(&cur.ThemePrimary, u.ThemePrimary)
		apply(&cur.ThemeSecondary, u.ThemeSecondary)
		if cur.AppName == "" {
			return apperr.InvalidArgument("app_name must not be empty")
		}
		if cur.ThemePrimary == "" || cur.ThemeSecondary == "" {
			return apperr.InvalidArgument("theme colors must not be empty")
		}
		saved, err = q.UpsertAppSettings(ctx, cur)
		if err != nil {
			return fmt.Errorf("upsert app settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.AppSettings{}, err
	}
	s.log.Info("app settings updated", zap.String("app_name", saved.AppName))
	return saved, nil
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
