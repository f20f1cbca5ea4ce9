package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/lunchbox/internal/model"
)

// LedgerEntry описывает результат изменения баланса купонов.
type LedgerEntry struct {
	CouponID int64
	Balance  int
}

// creditCoupons увеличивает баланс (создавая строку при необходимости) и пишет запись в журнал.
func creditCoupons(ctx context.Context, q querier, userID int64, t model.CouponType, qty int, orderID *int64, description string) (LedgerEntry, error) {
	var e LedgerEntry
	err := q.QueryRow(ctx,
		`INSERT INTO coupons (user_id, type, balance)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, type) DO UPDATE
		 SET balance = coupons.balance + EXCLUDED.balance, updated_at = NOW()
		 RETURNING id, balance`,
		userID, string(t), qty,
	).Scan(&e.CouponID, &e.Balance)
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("credit coupons: %w", err)
	}

	if err := appendTransaction(ctx, q, e.CouponID, orderID, qty, description); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// debitCoupons списывает купоны одним условным UPDATE: проверка остатка и уменьшение атомарны.
func debitCoupons(ctx context.Context, q querier, userID int64, t model.CouponType, qty int, orderID *int64, description string) (LedgerEntry, error) {
	var e LedgerEntry
	err := q.QueryRow(ctx,
		`UPDATE coupons
		 SET balance = balance - $3, updated_at = NOW()
		 WHERE user_id = $1 AND type = $2 AND balance >= $3
		 RETURNING id, balance`,
		userID, string(t), qty,
	).Scan(&e.CouponID, &e.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrInsufficientBalance
		}
		return LedgerEntry{}, fmt.Errorf("debit coupons: %w", err)
	}

	if err := appendTransaction(ctx, q, e.CouponID, orderID, -qty, description); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

func appendTransaction(ctx context.Context, q querier, couponID int64, orderID *int64, delta int, description string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO coupon_transactions (coupon_id, order_id, delta, description) VALUES ($1, $2, $3, $4)`,
		couponID, orderID, delta, description,
	)
	if err != nil {
		return fmt.Errorf("insert coupon transaction: %w", err)
	}
	return nil
}

// GetCouponBalances возвращает сохранённые балансы пользователя по видам купонов.
func (r *PostgresRepository) GetCouponBalances(ctx context.Context, userID int64) (map[model.CouponType]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT type, balance FROM coupons WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select coupons: %w", err)
	}
	defer rows.Close()

	res := make(map[model.CouponType]int)
	for rows.Next() {
		var (
			t       string
			balance int
		)
		if err := rows.Scan(&t, &balance); err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		res[model.CouponType(t)] = balance
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetCouponTransactions возвращает журнал изменений баланса одного вида, новые записи первыми.
func (r *PostgresRepository) GetCouponTransactions(ctx context.Context, userID int64, t model.CouponType) ([]model.BalanceTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tr.id, tr.coupon_id, tr.order_id, tr.delta, tr.description, tr.created_at
		 FROM coupon_transactions tr
		 JOIN coupons c ON c.id = tr.coupon_id
		 WHERE c.user_id = $1 AND c.type = $2
		 ORDER BY tr.created_at DESC, tr.id DESC`,
		userID, string(t),
	)
	if err != nil {
		return nil, fmt.Errorf("select coupon transactions: %w", err)
	}
	defer rows.Close()

	var res []model.BalanceTransaction
	for rows.Next() {
		tr := model.BalanceTransaction{Type: t}
		if err := rows.Scan(&tr.ID, &tr.CouponID, &tr.OrderID, &tr.Delta, &tr.Description, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coupon transaction: %w", err)
		}
		res = append(res, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func subscriptionTypeStrings(types []model.SubscriptionType) []string {
	res := make([]string, 0, len(types))
	for _, t := range types {
		res = append(res, string(t))
	}
	return res
}

func hasActiveSubscription(ctx context.Context, q querier, userID int64, types []model.SubscriptionType) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM subscriptions
		     WHERE user_id = $1 AND active = TRUE AND expires_at > NOW() AND type = ANY($2)
		 )`,
		userID, subscriptionTypeStrings(types),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return exists, nil
}

// ActiveSubscriptions возвращает действующие подписки пользователя.
func (r *PostgresRepository) ActiveSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, type, active, expires_at, created_at
		 FROM subscriptions
		 WHERE user_id = $1 AND active = TRUE AND expires_at > NOW()
		 ORDER BY expires_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var res []model.Subscription
	for rows.Next() {
		var (
			s model.Subscription
			t string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &t, &s.Active, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Type = model.SubscriptionType(t)
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func insertSubscription(ctx context.Context, q querier, userID int64, t model.SubscriptionType, orderID int64, expiresAt time.Time) (*model.Subscription, error) {
	s := &model.Subscription{UserID: userID, Type: t, Active: true, ExpiresAt: expiresAt}
	err := q.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, type, active, expires_at, order_id)
		 VALUES ($1, $2, TRUE, $3, $4)
		 RETURNING id, created_at`,
		userID, string(t), expiresAt, orderID,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	return s, nil
}
