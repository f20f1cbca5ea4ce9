package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/metrics"
)

// Sender отправляет одно сообщение.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Dispatcher отправляет уведомления в фоне. Ошибки доставки логируются и не возвращаются вызывающему.
type Dispatcher struct {
	sender      Sender
	adminChatID int64
	timeout     time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics

	wg sync.WaitGroup
}

// NewDispatcher создаёт диспетчер. Нулевой adminChatID отключает уведомления администратору.
func NewDispatcher(sender Sender, adminChatID int64, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		sender:      sender,
		adminChatID: adminChatID,
		timeout:     sendTimeout,
		logger:      logger,
		metrics:     m,
	}
}

// NotifyUser отправляет сообщение пользователю.
func (d *Dispatcher) NotifyUser(ctx context.Context, chatID int64, text string) {
	if chatID == 0 {
		return
	}
	d.send(ctx, chatID, text)
}

// NotifyAdmin отправляет сообщение в чат администратора.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, text string) {
	if d.adminChatID == 0 {
		return
	}
	d.send(ctx, d.adminChatID, text)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// отправка не должна прерываться вместе с запросом
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.sender.SendMessage(sendCtx, chatID, text); err != nil {
			d.logger.Error("send notification", zap.Int64("chatID", chatID), zap.Error(err))
			d.metrics.Notification(metrics.ResultError)
			return
		}
		d.metrics.Notification(metrics.ResultOK)
	}()
}

// Close ожидает завершения отправляемых сообщений.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
