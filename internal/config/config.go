// Package config содержит логику чтения конфигурации сервиса lunchbox.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DevBotToken включает режим разработки: initData не проверяется, Telegram не вызывается.
const DevBotToken = "dev"

// Config содержит параметры конфигурации сервиса lunchbox.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AppURL      string `env:"APP_URL"`

	BotToken    string `env:"BOT_TOKEN"`
	AdminChatID int64  `env:"ADMIN_CHAT_ID"`

	TBankTerminalKey string        `env:"TBANK_TERMINAL_KEY"`
	TBankPassword    string        `env:"TBANK_TERMINAL_PASSWORD"`
	TBankAPIURL      string        `env:"TBANK_API_URL" envDefault:"https://securepay.tinkoff.ru/v2"`
	PaymentTimeout   time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"15s"`

	CronSecret string `env:"CRON_SECRET"`

	RedisAddress string `env:"REDIS_ADDR"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// DevMode сообщает, запущен ли сервис в режиме разработки.
func (c *Config) DevMode() bool {
	return c.BotToken == DevBotToken
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("DATABASE_URI is required"))
	}
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("PAYMENT_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAppURL := cfg.AppURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AppURL, "u", "http://localhost:5173", "public application URL")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAppURL != "" {
		cfg.AppURL = envAppURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
