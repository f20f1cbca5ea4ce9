// Package identity проверяет подпись Telegram WebApp initData и сопоставляет
// пользователя Telegram с внутренней учётной записью.
package identity

import (
	"errors"
	"fmt"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

var (
	ErrMissingHash = errors.New("initData has no hash")
	ErrInvalidHash = errors.New("initData hash mismatch")
	ErrExpired     = errors.New("initData expired")
	ErrFromFuture  = errors.New("initData auth_date is in the future")
	ErrMissingUser = errors.New("initData has no user")
	ErrMalformed   = errors.New("malformed initData")
)

const (
	// DefaultMaxAge ограничивает возраст initData.
	DefaultMaxAge = 24 * time.Hour
	// MaxClockSkew допускает расхождение часов клиента и сервера.
	MaxClockSkew = 5 * time.Minute
)

// Principal описывает проверенного пользователя Telegram.
type Principal struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
}

// DevPrincipal возвращается в режиме разработки, если initData не содержит пользователя.
var DevPrincipal = Principal{TelegramID: 123456789, FirstName: "Dev", Username: "dev"}

// Validator проверяет initData, подписанный токеном бота.
type Validator struct {
	botToken string
	dev      bool
	maxAge   time.Duration
	now      func() time.Time
}

// NewValidator создаёт валидатор. В режиме разработки подпись не проверяется.
func NewValidator(botToken string, dev bool) *Validator {
	return &Validator{
		botToken: botToken,
		dev:      dev,
		maxAge:   DefaultMaxAge,
		now:      time.Now,
	}
}

// Parse проверяет initData и извлекает из него пользователя.
func (v *Validator) Parse(raw string) (Principal, error) {
	if v.dev {
		if d, err := initdata.Parse(raw); err == nil && d.User.ID != 0 {
			return principalOf(d.User), nil
		}
		return DevPrincipal, nil
	}

	// Срок действия проверяется ниже.
	if err := initdata.Validate(raw, v.botToken, 0); err != nil {
		return Principal{}, validationError(err)
	}

	d, err := initdata.Parse(raw)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	authDate := d.AuthDate()
	if authDate.Unix() <= 0 {
		return Principal{}, fmt.Errorf("%w: no auth_date", ErrMalformed)
	}

	age := v.now().Sub(authDate)
	if age > v.maxAge {
		return Principal{}, ErrExpired
	}
	if age < -MaxClockSkew {
		return Principal{}, ErrFromFuture
	}

	if d.User.ID == 0 {
		return Principal{}, ErrMissingUser
	}
	return principalOf(d.User), nil
}

func validationError(err error) error {
	switch {
	case errors.Is(err, initdata.ErrSignMissing):
		return fmt.Errorf("%w: %w", ErrMissingHash, err)
	case errors.Is(err, initdata.ErrSignInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}

func principalOf(u initdata.User) Principal {
	return Principal{
		TelegramID: u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
	}
}
