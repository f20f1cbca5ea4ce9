package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/lunchbox/internal/model"
)

const orderSelect = `SELECT o.id, o.user_id, o.status, o.total_kopecks, o.delivery_room, o.delivery_time,
	COALESCE(o.comment, ''), o.paid_with, o.purchase, o.courier_id, o.created_at, o.updated_at,
	u.telegram_id, u.first_name, COALESCE(u.last_name, ''), COALESCE(u.username, '')
	FROM orders o
	JOIN users u ON u.id = o.user_id`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o        model.Order
		status   string
		paidWith string
		c        model.Customer
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalKopecks, &o.DeliveryRoom, &o.DeliveryTime,
		&o.Comment, &paidWith, &o.Purchase, &o.CourierID, &o.CreatedAt, &o.UpdatedAt,
		&c.TelegramID, &c.FirstName, &c.LastName, &c.Username)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(paidWith)
	o.Purchase = resolvePurchase(o.Purchase, o.Comment)
	o.Customer = &c
	return &o, nil
}

// resolvePurchase восполняет назначение заказов, у которых оно записано только меткой в комментарии.
func resolvePurchase(p model.Purchase, comment string) model.Purchase {
	if p.Kind != "" && p.Kind != model.PurchaseOrder {
		return p
	}
	if legacy, err := model.ParsePurchaseMarker(comment); err == nil {
		return legacy
	}
	return model.OrderPurchase()
}

// CreateOrder атомарно создаёт заказ с позициями. В той же транзакции проверяется подписка
// и списывается купон, поэтому при любой ошибке не сохраняется ничего.
func (r *PostgresRepository) CreateOrder(ctx context.Context, no model.NewOrder) (*model.Order, error) {
	var created *model.Order
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			o, err := createOrder(ctx, tx, no)
			if err != nil {
				return err
			}
			created = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func createOrder(ctx context.Context, tx pgx.Tx, no model.NewOrder) (*model.Order, error) {
	if len(no.RequireSubscription) > 0 {
		ok, err := hasActiveSubscription(ctx, tx, no.UserID, no.RequireSubscription)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoActiveSubscription
		}
	}

	o := &model.Order{
		UserID:        no.UserID,
		Status:        no.Status,
		TotalKopecks:  no.TotalKopecks,
		DeliveryRoom:  no.DeliveryRoom,
		DeliveryTime:  no.DeliveryTime,
		Comment:       no.Comment,
		PaymentMethod: no.PaymentMethod,
		Purchase:      no.Purchase,
	}

	err := tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, total_kopecks, delivery_room, delivery_time, comment, paid_with, purchase)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 RETURNING id, created_at, updated_at`,
		no.UserID, string(no.Status), no.TotalKopecks, no.DeliveryRoom, no.DeliveryTime,
		no.Comment, string(no.PaymentMethod), no.Purchase,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	o.Items = make([]model.OrderItem, 0, len(no.Items))
	for _, it := range no.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, item_id, item_name, quantity, price_kopecks)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.ItemID, it.ItemName, it.Quantity, it.PriceKopecks,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("%w: %d", ErrUnknownItem, it.ItemID)
			}
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		it.OrderID = o.ID
		o.Items = append(o.Items, it)
	}

	if no.DebitCoupon != nil {
		orderID := o.ID
		if _, err := debitCoupons(ctx, tx, no.UserID, *no.DebitCoupon, 1, &orderID, fmt.Sprintf("Заказ #%d", o.ID)); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// GetOrder возвращает заказ с позициями и данными заказчика.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []model.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByUser возвращает последние заказы пользователя, новые первыми.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	return r.listOrders(ctx,
		orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC LIMIT $2`,
		userID, limit,
	)
}

// ListOrders возвращает заказы для администратора с необязательным фильтром по статусу.
func (r *PostgresRepository) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	if f.Status != "" {
		return r.listOrders(ctx,
			orderSelect+` WHERE o.status = $1 ORDER BY o.created_at DESC LIMIT $2`,
			string(f.Status), f.Limit,
		)
	}
	return r.listOrders(ctx,
		orderSelect+` ORDER BY o.created_at DESC LIMIT $1`,
		f.Limit,
	)
}

// ListOrdersByStatus возвращает все заказы в статусе, старые первыми.
func (r *PostgresRepository) ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return r.listOrders(ctx,
		orderSelect+` WHERE o.status = $1 ORDER BY o.created_at`,
		string(status),
	)
}

// ListCourierOrdersSince возвращает заказы курьера в доставке и доставленные, изменённые после since.
func (r *PostgresRepository) ListCourierOrdersSince(ctx context.Context, courierID int64, since time.Time) ([]model.Order, error) {
	return r.listOrders(ctx,
		orderSelect+` WHERE o.courier_id = $1 AND o.updated_at >= $2 AND o.status IN ('delivering', 'delivered')
		 ORDER BY o.updated_at DESC`,
		courierID, since,
	)
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		index[orders[i].ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return nil
}

func loadItems(ctx context.Context, q querier, orderIDs []int64) ([]model.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, order_id, item_id, item_name, quantity, price_kopecks
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.ItemName, &it.Quantity, &it.PriceKopecks); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// TransitionStatus меняет статус заказа только если текущий статус равен from.
// Возвращает Telegram ID заказчика для уведомления.
func (r *PostgresRepository) TransitionStatus(ctx context.Context, id int64, from, to model.OrderStatus) (int64, error) {
	return r.casOrder(ctx, "transition order",
		`UPDATE orders o SET status = $3, updated_at = NOW()
		 FROM users u
		 WHERE o.id = $1 AND o.status = $2 AND u.id = o.user_id
		 RETURNING u.telegram_id`,
		id, string(from), string(to),
	)
}

// AssignCourier переводит готовый заказ в доставку и закрепляет за ним курьера.
func (r *PostgresRepository) AssignCourier(ctx context.Context, id, courierID int64) (int64, error) {
	return r.casOrder(ctx, "assign courier",
		`UPDATE orders o SET status = 'delivering', courier_id = $2, updated_at = NOW()
		 FROM users u
		 WHERE o.id = $1 AND o.status = 'ready' AND u.id = o.user_id
		 RETURNING u.telegram_id`,
		id, courierID,
	)
}

// CompleteDelivery отмечает заказ доставленным. Разрешено закреплённому курьеру или администратору.
func (r *PostgresRepository) CompleteDelivery(ctx context.Context, id, callerID int64, isAdmin bool) (int64, error) {
	return r.casOrder(ctx, "complete delivery",
		`UPDATE orders o SET status = 'delivered', updated_at = NOW()
		 FROM users u
		 WHERE o.id = $1 AND o.status = 'delivering' AND (o.courier_id = $2 OR $3) AND u.id = o.user_id
		 RETURNING u.telegram_id`,
		id, callerID, isAdmin,
	)
}

func (r *PostgresRepository) casOrder(ctx context.Context, op, query string, args ...any) (int64, error) {
	var telegramID int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrStatusConflict
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return telegramID, nil
}
