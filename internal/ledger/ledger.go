// Package ledger ведёт балансы купонов и подписки пользователей.
package ledger

import (
	"context"
	"fmt"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/model"
)

// Store описывает хранилище балансов и подписок.
type Store interface {
	GetCouponBalances(ctx context.Context, userID int64) (map[model.CouponType]int, error)
	GetCouponTransactions(ctx context.Context, userID int64, t model.CouponType) ([]model.BalanceTransaction, error)
	ActiveSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error)
}

// Service отдаёт балансы купонов и подписки. Начисление и списание выполняются
// в транзакциях заказа и подтверждения оплаты.
type Service struct {
	store Store
}

// NewService создаёт сервис баланса.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balances возвращает баланс по каждому виду купонов. Отсутствующие виды имеют нулевой баланс.
func (s *Service) Balances(ctx context.Context, userID int64) ([]model.CouponBalance, error) {
	stored, err := s.store.GetCouponBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("coupon balances: %w", err)
	}

	res := make([]model.CouponBalance, 0, len(model.CouponTypes))
	for _, t := range model.CouponTypes {
		res = append(res, model.CouponBalance{Type: t, Balance: stored[t]})
	}
	return res, nil
}

// History возвращает журнал изменений баланса одного вида, новые записи первыми.
func (s *Service) History(ctx context.Context, userID int64, t model.CouponType) ([]model.BalanceTransaction, error) {
	if !t.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown coupon type %q", t)
	}

	txs, err := s.store.GetCouponTransactions(ctx, userID, t)
	if err != nil {
		return nil, fmt.Errorf("coupon history: %w", err)
	}
	if txs == nil {
		txs = []model.BalanceTransaction{}
	}
	return txs, nil
}

// ActiveSubscriptions возвращает действующие подписки пользователя.
func (s *Service) ActiveSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	subs, err := s.store.ActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("active subscriptions: %w", err)
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	return subs, nil
}
