package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/lunchbox/internal/model"
)

// CreatePaymentRecord сохраняет платёж, созданный во внешнем шлюзе.
func (r *PostgresRepository) CreatePaymentRecord(ctx context.Context, p model.PaymentRecord) (*model.PaymentRecord, error) {
	res := p
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payments (order_id, tbank_payment_id, tbank_order_id, amount_kopecks, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tbank_payment_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		p.OrderID, p.GatewayPaymentID, p.GatewayOrderRef, p.AmountKopecks, p.Status,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &res, nil
}

// UpsertPaymentStatus обновляет статус платежа по данным уведомления шлюза.
// Запись ищется по идентификатору платежа; если его нет, по ссылке на заказ.
// Повторные уведомления обновляют ту же строку.
func (r *PostgresRepository) UpsertPaymentStatus(ctx context.Context, p model.PaymentRecord) error {
	if p.GatewayPaymentID == "" {
		_, err := r.pool.Exec(ctx,
			`UPDATE payments SET status = $2, updated_at = NOW() WHERE tbank_order_id = $1`,
			p.GatewayOrderRef, p.Status,
		)
		if err != nil {
			return fmt.Errorf("update payment by order ref: %w", err)
		}
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO payments (order_id, tbank_payment_id, tbank_order_id, amount_kopecks, status)
		 SELECT o.id, $2, $3, $4, $5 FROM orders o WHERE o.id = $1
		 ON CONFLICT (tbank_payment_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`,
		p.OrderID, p.GatewayPaymentID, p.GatewayOrderRef, p.AmountKopecks, p.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

// ConfirmPurchase в одной транзакции переводит заказ из pending в paid и применяет
// следствие покупки: начисляет купоны или оформляет подписку.
// Если заказ уже не в pending, возвращает ErrStatusConflict и ничего не меняет,
// поэтому повторное подтверждение не начисляет баланс дважды.
func (r *PostgresRepository) ConfirmPurchase(ctx context.Context, orderID int64, expected model.PurchaseKind) (*model.PaymentConfirmation, error) {
	var res *model.PaymentConfirmation
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			c, err := r.confirmPurchase(ctx, tx, orderID, expected)
			if err != nil {
				return err
			}
			res = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *PostgresRepository) confirmPurchase(ctx context.Context, tx pgx.Tx, orderID int64, expected model.PurchaseKind) (*model.PaymentConfirmation, error) {
	c := &model.PaymentConfirmation{}
	o := &c.Order

	var (
		status   string
		paidWith string
	)
	err := tx.QueryRow(ctx,
		`UPDATE orders SET status = 'paid', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING id, user_id, status, total_kopecks, delivery_room, delivery_time,
		           COALESCE(comment, ''), paid_with, purchase, created_at, updated_at`,
		orderID,
	).Scan(&o.ID, &o.UserID, &status, &o.TotalKopecks, &o.DeliveryRoom, &o.DeliveryTime,
		&o.Comment, &paidWith, &o.Purchase, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(paidWith)
	o.Purchase = resolvePurchase(o.Purchase, o.Comment)

	if o.Purchase.Kind != expected {
		return nil, fmt.Errorf("%w: order %d is %q, reference says %q", ErrPurchaseMismatch, o.ID, o.Purchase.Kind, expected)
	}

	switch o.Purchase.Kind {
	case model.PurchaseCoupons:
		entry, err := creditCoupons(ctx, tx, o.UserID, o.Purchase.CouponType, o.Purchase.Quantity, &o.ID,
			fmt.Sprintf("Покупка %d купонов", o.Purchase.Quantity))
		if err != nil {
			return nil, err
		}
		c.CouponBalance = entry.Balance
	case model.PurchaseSubscription:
		s, err := insertSubscription(ctx, tx, o.UserID, o.Purchase.SubscriptionType, o.ID, r.now().Add(model.SubscriptionDuration))
		if err != nil {
			return nil, err
		}
		c.Subscription = s
	default:
		items, err := loadItems(ctx, tx, []int64{o.ID})
		if err != nil {
			return nil, err
		}
		o.Items = items
	}

	err = tx.QueryRow(ctx, `SELECT telegram_id FROM users WHERE id = $1`, o.UserID).Scan(&c.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("select customer: %w", err)
	}

	return c, nil
}
