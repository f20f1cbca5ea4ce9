package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/lunchbox/internal/model"
)

const settledStatuses = `('paid', 'preparing', 'ready', 'delivering', 'delivered')`

// GetStats собирает статистику по заказам, созданным после since.
func (r *PostgresRepository) GetStats(ctx context.Context, since time.Time) (*model.Stats, error) {
	var s model.Stats

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_kopecks), 0)::bigint, COUNT(*)::int
		 FROM orders
		 WHERE status IN `+settledStatuses+` AND created_at >= $1`,
		since,
	).Scan(&s.Revenue.Total, &s.Revenue.OrderCount)
	if err != nil {
		return nil, fmt.Errorf("select revenue: %w", err)
	}
	if s.Revenue.OrderCount > 0 {
		s.Revenue.AvgCheck = (s.Revenue.Total + int64(s.Revenue.OrderCount)/2) / int64(s.Revenue.OrderCount)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*)::int FROM orders WHERE created_at >= $1 GROUP BY status ORDER BY 2 DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("select status counts: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		s.OrdersByStatus = append(s.OrdersByStatus, model.StatusCount{Status: model.OrderStatus(status), Count: count})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT oi.item_name, SUM(oi.quantity)::int, SUM(oi.price_kopecks * oi.quantity)::bigint
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.status IN `+settledStatuses+` AND o.created_at >= $1
		 GROUP BY oi.item_name
		 ORDER BY 2 DESC
		 LIMIT 10`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("select top dishes: %w", err)
	}
	for rows.Next() {
		var d model.DishStats
		if err := rows.Scan(&d.ItemName, &d.TotalQuantity, &d.TotalRevenue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan dish stats: %w", err)
		}
		s.TopDishes = append(s.TopDishes, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT paid_with, COUNT(*)::int
		 FROM orders
		 WHERE status IN `+settledStatuses+` AND created_at >= $1
		 GROUP BY paid_with
		 ORDER BY 2 DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("select payment methods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			method string
			count  int
		)
		if err := rows.Scan(&method, &count); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		s.PaymentMethods = append(s.PaymentMethods, model.MethodCount{Method: model.PaymentMethod(method), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &s, nil
}
