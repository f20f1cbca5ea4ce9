package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/lunchbox/internal/model"
)

const menuItemColumns = `m.id, m.category_id, c.slug, m.name, COALESCE(m.description, ''), m.price_kopecks,
	COALESCE(m.image_url, ''), m.available, m.is_business_lunch`

// GetAvailableItems возвращает доступные позиции меню из указанного набора.
// Отсутствующие в результате идентификаторы неизвестны или сняты с продажи.
func (r *PostgresRepository) GetAvailableItems(ctx context.Context, ids []int64) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuItemColumns+`
		 FROM menu_items m
		 JOIN categories c ON c.id = m.category_id
		 WHERE m.id = ANY($1) AND m.available = TRUE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

// ListAvailableItems возвращает все доступные позиции меню в порядке категорий.
func (r *PostgresRepository) ListAvailableItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuItemColumns+`
		 FROM menu_items m
		 JOIN categories c ON c.id = m.category_id
		 WHERE m.available = TRUE
		 ORDER BY c.sort_order, m.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

// DailyMenuItems возвращает доступные позиции меню дня в порядке категорий.
func (r *PostgresRepository) DailyMenuItems(ctx context.Context, day time.Time) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuItemColumns+`
		 FROM daily_menu dm
		 JOIN menu_items m ON m.id = dm.menu_item_id
		 JOIN categories c ON c.id = m.category_id
		 WHERE dm.date = $1 AND m.available = TRUE
		 ORDER BY c.sort_order, m.name`,
		day.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("select daily menu items: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMenuItems(rows rowsScanner) ([]model.MenuItem, error) {
	var items []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.CategorySlug, &m.Name, &m.Description,
			&m.PriceKopecks, &m.ImageURL, &m.Available, &m.IsBusinessLunch); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// ListCategories возвращает категории меню.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, sort_order, COALESCE(icon, '') FROM categories ORDER BY sort_order`,
	)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// DailyMenuItemIDs возвращает позиции меню дня на указанную дату.
func (r *PostgresRepository) DailyMenuItemIDs(ctx context.Context, day time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT menu_item_id FROM daily_menu WHERE date = $1 ORDER BY menu_item_id`,
		day.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("select daily menu: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan daily menu: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}
