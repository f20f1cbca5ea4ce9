package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/repository"
)

// Store описывает хранилище пользователей.
type Store interface {
	UpsertUser(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error)
	SetNotifyDailyMenu(ctx context.Context, userID int64, enabled bool) error
}

// Resolver сопоставляет проверенного пользователя Telegram с записью в БД.
type Resolver struct {
	store Store
}

// NewResolver создаёт Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve создаёт пользователя при первом обращении и обновляет отображаемые данные при последующих.
func (r *Resolver) Resolve(ctx context.Context, p Principal) (*model.User, error) {
	if p.TelegramID == 0 {
		return nil, apperr.New(apperr.KindUnauthorized, "")
	}

	u, err := r.store.UpsertUser(ctx, p.TelegramID, p.FirstName, p.LastName, p.Username)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", p.TelegramID, err)
	}
	return u, nil
}

// SetNotifications включает или выключает рассылку меню дня.
func (r *Resolver) SetNotifications(ctx context.Context, userID int64, enabled bool) error {
	err := r.store.SetNotifyDailyMenu(ctx, userID, enabled)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return err
}
