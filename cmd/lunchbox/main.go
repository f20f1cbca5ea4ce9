// Package main запускает HTTP-сервер сервиса lunchbox.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/lunchbox/internal/broadcast"
	"github.com/mmeshcher/lunchbox/internal/catalog"
	"github.com/mmeshcher/lunchbox/internal/config"
	"github.com/mmeshcher/lunchbox/internal/handler"
	"github.com/mmeshcher/lunchbox/internal/identity"
	"github.com/mmeshcher/lunchbox/internal/ledger"
	"github.com/mmeshcher/lunchbox/internal/metrics"
	"github.com/mmeshcher/lunchbox/internal/middleware"
	"github.com/mmeshcher/lunchbox/internal/notify"
	"github.com/mmeshcher/lunchbox/internal/order"
	"github.com/mmeshcher/lunchbox/internal/payment"
	"github.com/mmeshcher/lunchbox/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	m := metrics.New()

	var guard payment.ReplayGuard = payment.NopGuard{}
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			sugar.Warnw("redis is unavailable, webhook replay guard fails open", "addr", cfg.RedisAddress, "error", err.Error())
		}
		cancel()

		guard = payment.NewRedisGuard(rdb, payment.DefaultReplayTTL)
	}

	telegram, err := notify.NewTelegram(cfg.BotToken, cfg.DevMode(), logger.Named("telegram"))
	if err != nil {
		sugar.Fatalw("telegram client initialization error", "error", err.Error())
	}
	dispatcher := notify.NewDispatcher(telegram, cfg.AdminChatID, logger.Named("notify"), m)
	defer dispatcher.Close()

	gateway := payment.NewClient(cfg.TBankAPIURL, cfg.TBankTerminalKey, cfg.TBankPassword, cfg.PaymentTimeout)

	catalogSvc := catalog.NewService(repo)
	ledgerSvc := ledger.NewService(repo)
	resolver := identity.NewResolver(repo)
	orderSvc := order.NewService(repo, catalogSvc, dispatcher, logger.Named("order"), m)
	paymentSvc := payment.NewService(repo, gateway, dispatcher, guard, payment.Config{
		AppURL:      cfg.AppURL,
		Password:    cfg.TBankPassword,
		InitTimeout: cfg.PaymentTimeout,
	}, logger.Named("payment"), m)

	broadcastSvc := broadcast.NewService(catalogSvc, repo, telegram, logger.Named("broadcast"), m)
	if cfg.CronSecret == "" {
		sugar.Warn("CRON_SECRET is not set: /api/cron/daily-menu is disabled")
	}

	if cfg.DevMode() {
		sugar.Warn("BOT_TOKEN=dev: init data is not verified, Telegram messages are only logged")
	}

	authMiddleware := middleware.NewAuthMiddleware(identity.NewValidator(cfg.BotToken, cfg.DevMode()), resolver, logger.Named("auth"))
	h := handler.NewHandler(handler.Services{
		Orders:     orderSvc,
		Payments:   paymentSvc,
		Ledger:     ledgerSvc,
		Catalog:    catalogSvc,
		Profile:    resolver,
		Broadcast:  broadcastSvc,
		Health:     repo,
		CronSecret: cfg.CronSecret,
	}, logger, m, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting lunchbox server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
