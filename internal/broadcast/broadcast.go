// Package broadcast рассылает меню дня подписанным пользователям.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/metrics"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/notify"
)

const (
	ReasonNoMenu        = "No daily menu configured"
	ReasonNoSubscribers = "No subscribers"
)

// MenuSource отдаёт позиции меню дня.
type MenuSource interface {
	DailyItems(ctx context.Context, day time.Time) ([]model.MenuItem, error)
}

// Subscribers перечисляет получателей рассылки.
type Subscribers interface {
	ListDailyMenuSubscribers(ctx context.Context) ([]int64, error)
}

// Sender отправляет сообщение в чат Telegram.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Result описывает итог рассылки.
type Result struct {
	Sent   int    `json:"sent"`
	Errors int    `json:"errors"`
	Date   string `json:"date,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Service рассылает меню дня.
type Service struct {
	menu    MenuSource
	subs    Subscribers
	sender  Sender
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService создаёт сервис рассылки.
func NewService(menu MenuSource, subs Subscribers, sender Sender, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		menu:    menu,
		subs:    subs,
		sender:  sender,
		logger:  logger,
		metrics: m,
	}
}

// DailyMenu отправляет меню на указанный день всем подписчикам по очереди.
// Ошибка доставки одному получателю не останавливает рассылку.
func (s *Service) DailyMenu(ctx context.Context, day time.Time) (*Result, error) {
	date := day.Format(time.DateOnly)

	items, err := s.menu.DailyItems(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load daily menu: %w", err)
	}
	if len(items) == 0 {
		s.logger.Info("no daily menu", zap.String("date", date))
		return &Result{Reason: ReasonNoMenu}, nil
	}

	chatIDs, err := s.subs.ListDailyMenuSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	if len(chatIDs) == 0 {
		return &Result{Reason: ReasonNoSubscribers}, nil
	}

	text := notify.DailyMenu(day, items)
	res := &Result{Date: date}
	for _, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("broadcast interrupted after %d messages: %w", res.Sent+res.Errors, err)
		}

		if err := s.sender.SendMessage(ctx, chatID, text); err != nil {
			res.Errors++
			s.logger.Warn("send daily menu", zap.Int64("chatID", chatID), zap.Error(err))
			s.metrics.Notification(metrics.ResultError)
			continue
		}
		res.Sent++
		s.metrics.Notification(metrics.ResultOK)
	}

	s.logger.Info("daily menu sent",
		zap.String("date", date),
		zap.Int("sent", res.Sent),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}
