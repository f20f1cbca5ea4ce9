// Package notify доставляет сообщения пользователям и администратору через Telegram Bot API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	telegramAPI = "https://api.telegram.org"

	// Bot API допускает около 30 сообщений в секунду на бота.
	messagesPerSecond = 25
	sendTimeout       = 10 * time.Second
)

// Telegram отправляет сообщения методом sendMessage.
type Telegram struct {
	bot     *bot.Bot
	dev     bool
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegram создаёт клиента Bot API. В режиме разработки сообщения только пишутся в лог.
func NewTelegram(token string, dev bool, logger *zap.Logger) (*Telegram, error) {
	return newTelegram(telegramAPI, token, dev, logger)
}

func newTelegram(apiURL, token string, dev bool, logger *zap.Logger) (*Telegram, error) {
	t := &Telegram{
		dev:     dev,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), messagesPerSecond),
		logger:  logger,
	}
	if dev {
		return t, nil
	}
	if token == "" {
		return nil, errors.New("bot token is empty")
	}

	b, err := bot.New(token,
		bot.WithSkipGetMe(),
		bot.WithServerURL(apiURL),
		bot.WithHTTPClient(sendTimeout, &http.Client{Timeout: sendTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create bot client: %w", err)
	}
	t.bot = b
	return t, nil
}

// SendMessage отправляет HTML-сообщение в указанный чат.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	if t.dev {
		t.logger.Info("telegram message (dev mode)", zap.Int64("chatID", chatID), zap.String("text", text))
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}
