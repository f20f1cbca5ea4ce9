package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/lunchbox/internal/model"
)

const userColumns = `id, telegram_id, first_name, COALESCE(last_name, ''), COALESCE(username, ''), role, notify_daily_menu, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.Username, &role, &u.NotifyDailyMenu, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// UpsertUser создаёт пользователя при первом обращении или обновляет его отображаемые данные.
func (r *PostgresRepository) UpsertUser(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (telegram_id, first_name, last_name, username)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (telegram_id) DO UPDATE
		 SET first_name = EXCLUDED.first_name,
		     last_name  = EXCLUDED.last_name,
		     username   = EXCLUDED.username
		 RETURNING `+userColumns,
		telegramID, firstName, lastName, username,
	)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// SetNotifyDailyMenu включает или выключает рассылку меню дня для пользователя.
func (r *PostgresRepository) SetNotifyDailyMenu(ctx context.Context, userID int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET notify_daily_menu = $2 WHERE id = $1`,
		userID, enabled,
	)
	if err != nil {
		return fmt.Errorf("update notify flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDailyMenuSubscribers возвращает Telegram-идентификаторы пользователей, подписанных на меню дня.
func (r *PostgresRepository) ListDailyMenuSubscribers(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT telegram_id FROM users WHERE notify_daily_menu = TRUE ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan subscribers: %w", err)
	}
	return ids, nil
}
