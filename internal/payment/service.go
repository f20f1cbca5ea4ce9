package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/metrics"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/notify"
	"github.com/mmeshcher/lunchbox/internal/repository"
)

// Исходы обработки уведомления для логов и метрик.
const (
	outcomeUnparseable  = "unparseable"
	outcomeBadToken     = "bad_token"
	outcomeBadReference = "bad_reference"
	outcomeReplay       = "replay"
	outcomeIgnored      = "ignored"
	outcomeDuplicate    = "duplicate"
	outcomeMismatch     = "mismatch"
	outcomeConfirmed    = "confirmed"
	outcomeCancelled    = "cancelled"
	outcomeFailed       = "failed"
)

// Store описывает хранилище, используемое платёжным сервисом.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	CreateOrder(ctx context.Context, no model.NewOrder) (*model.Order, error)
	CreatePaymentRecord(ctx context.Context, p model.PaymentRecord) (*model.PaymentRecord, error)
	UpsertPaymentStatus(ctx context.Context, p model.PaymentRecord) error
	ConfirmPurchase(ctx context.Context, orderID int64, expected model.PurchaseKind) (*model.PaymentConfirmation, error)
	TransitionStatus(ctx context.Context, id int64, from, to model.OrderStatus) (int64, error)
}

// Gateway создаёт платежи во внешнем шлюзе.
type Gateway interface {
	Init(ctx context.Context, r InitRequest) (*InitResponse, error)
}

// Notifier отправляет уведомления без ожидания результата.
type Notifier interface {
	NotifyUser(ctx context.Context, chatID int64, text string)
	NotifyAdmin(ctx context.Context, text string)
}

// Config содержит параметры платёжного сервиса.
type Config struct {
	AppURL      string
	Password    string
	InitTimeout time.Duration
}

// InitResult возвращается клиенту после создания платежа.
type InitResult struct {
	OrderID    int64  `json:"orderId"`
	PaymentID  string `json:"paymentId"`
	PaymentURL string `json:"paymentUrl"`
}

// Service создаёт платежи и обрабатывает уведомления шлюза.
type Service struct {
	store    Store
	gateway  Gateway
	notifier Notifier
	guard    ReplayGuard
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService создаёт платёжный сервис. Если guard равен nil, повторы отсекаются только условным обновлением статуса.
func NewService(store Store, gateway Gateway, notifier Notifier, guard ReplayGuard, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	if guard == nil {
		guard = NopGuard{}
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 15 * time.Second
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	return &Service{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		guard:    guard,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "payment")),
		metrics:  m,
	}
}

// Initiate создаёт платёж для заказа пользователя в статусе pending.
func (s *Service) Initiate(ctx context.Context, userID, orderID int64) (*InitResult, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindOrderNotPayable, "order not found")
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.New(apperr.KindOrderNotPayable, "order not found")
	}
	if o.Status != model.OrderStatusPending {
		return nil, apperr.New(apperr.KindOrderNotPayable, "order is already paid or cancelled").
			WithDetail("status", o.Status)
	}

	return s.initiate(ctx, o)
}

// BuyCoupons создаёт заказ на покупку пакета купонов и платёж по нему.
func (s *Service) BuyCoupons(ctx context.Context, user *model.User, t model.CouponType, quantity int) (*InitResult, error) {
	if !t.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown coupon type %q", t)
	}
	pkg, ok := model.FindCouponPackage(quantity)
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "no coupon package of %d", quantity)
	}

	return s.purchase(ctx, user, pkg.PriceKopecks, model.CouponPurchase(t, pkg.Quantity))
}

// BuySubscription создаёт заказ на покупку подписки и платёж по нему.
func (s *Service) BuySubscription(ctx context.Context, user *model.User, t model.SubscriptionType) (*InitResult, error) {
	plan, ok := model.FindSubscriptionPlan(t)
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "invalid subscription type %q", t)
	}

	return s.purchase(ctx, user, plan.PriceKopecks, model.SubscriptionPurchase(plan.Type))
}

func (s *Service) purchase(ctx context.Context, user *model.User, amount int64, p model.Purchase) (*InitResult, error) {
	o, err := s.store.CreateOrder(ctx, model.NewOrder{
		UserID:        user.ID,
		Status:        model.OrderStatusPending,
		TotalKopecks:  amount,
		DeliveryRoom:  "N/A",
		DeliveryTime:  "N/A",
		Comment:       p.Marker(),
		PaymentMethod: model.PaymentCard,
		Purchase:      p,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s order: %w", p.Kind, err)
	}

	return s.initiate(ctx, o)
}

func (s *Service) initiate(ctx context.Context, o *model.Order) (*InitResult, error) {
	ref := FormatReference(o.Purchase.Kind, o.ID)
	req := InitRequest{
		Amount:          o.TotalKopecks,
		OrderRef:        ref,
		Description:     describe(o),
		NotificationURL: s.cfg.AppURL + "/api/payment/webhook",
	}
	switch o.Purchase.Kind {
	case model.PurchaseCoupons:
		req.SuccessURL = s.cfg.AppURL + "/coupons"
		req.FailURL = s.cfg.AppURL + "/coupons"
	case model.PurchaseSubscription:
		req.SuccessURL = s.cfg.AppURL + "/profile"
		req.FailURL = s.cfg.AppURL + "/profile"
	default:
		req.SuccessURL = fmt.Sprintf("%s/order-success/%d", s.cfg.AppURL, o.ID)
		req.FailURL = s.cfg.AppURL + "/checkout"
	}

	initCtx, cancel := context.WithTimeout(ctx, s.cfg.InitTimeout)
	defer cancel()

	resp, err := s.gateway.Init(initCtx, req)
	if err != nil {
		s.logger.Error("payment init failed", zap.Int64("orderID", o.ID), zap.String("ref", ref), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPaymentInitFailed, err, "")
	}

	status := strings.ToLower(resp.Status)
	if status == "" {
		status = "new"
	}
	_, err = s.store.CreatePaymentRecord(ctx, model.PaymentRecord{
		OrderID:          o.ID,
		GatewayPaymentID: string(resp.PaymentID),
		GatewayOrderRef:  ref,
		AmountKopecks:    o.TotalKopecks,
		Status:           status,
	})
	if err != nil {
		return nil, fmt.Errorf("save payment record: %w", err)
	}

	s.logger.Info("payment initiated",
		zap.Int64("orderID", o.ID),
		zap.String("ref", ref),
		zap.String("paymentID", string(resp.PaymentID)),
	)

	return &InitResult{
		OrderID:    o.ID,
		PaymentID:  string(resp.PaymentID),
		PaymentURL: resp.PaymentURL,
	}, nil
}

func describe(o *model.Order) string {
	switch o.Purchase.Kind {
	case model.PurchaseCoupons:
		kind := "обеденных"
		if o.Purchase.CouponType == model.CouponCoffee {
			kind = "кофейных"
		}
		return fmt.Sprintf("Покупка %d %s купонов", o.Purchase.Quantity, kind)
	case model.PurchaseSubscription:
		return fmt.Sprintf("Подписка \"%s\" на 30 дней", o.Purchase.SubscriptionType.DisplayName())
	}
	return fmt.Sprintf("Заказ #%d", o.ID)
}

// HandleWebhook обрабатывает уведомление шлюза. Ошибки только логируются:
// шлюз должен всегда получать подтверждение, иначе будет повторять уведомление.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) {
	outcome := s.handleWebhook(ctx, body)
	s.metrics.WebhookEvent(outcome)
}

func (s *Service) handleWebhook(ctx context.Context, body []byte) string {
	n, err := ParseNotification(body)
	if err != nil {
		s.logger.Error("webhook: unparseable notification", zap.Error(err))
		return outcomeUnparseable
	}

	log := s.logger.With(
		zap.String("ref", n.OrderRef),
		zap.String("paymentID", n.PaymentID),
		zap.String("status", n.Status),
	)

	if !VerifyToken(n.Fields, n.Token, s.cfg.Password) {
		log.Error("webhook: invalid token")
		return outcomeBadToken
	}

	kind, orderID, err := ParseReference(n.OrderRef)
	if err != nil {
		log.Error("webhook: bad order reference", zap.Error(err))
		return outcomeBadReference
	}
	log = log.With(zap.Int64("orderID", orderID), zap.String("kind", string(kind)))

	err = s.store.UpsertPaymentStatus(ctx, model.PaymentRecord{
		OrderID:          orderID,
		GatewayPaymentID: n.PaymentID,
		GatewayOrderRef:  n.OrderRef,
		AmountKopecks:    n.Amount,
		Status:           strings.ToLower(n.Status),
	})
	if err != nil {
		log.Error("webhook: update payment record", zap.Error(err))
	}

	confirmed := n.Status == StatusConfirmed && n.Success
	if !confirmed && n.Status != StatusRejected {
		log.Info("webhook: status ignored")
		return outcomeIgnored
	}

	key := ReplayKey(n.PaymentID, n.Status)
	if n.PaymentID == "" {
		key = ReplayKey(n.OrderRef, n.Status)
	}
	first, err := s.guard.Acquire(ctx, key)
	if err != nil {
		log.Error("webhook: replay guard unavailable", zap.Error(err))
		first = true
	}
	if !first {
		log.Info("webhook: replayed notification skipped")
		return outcomeReplay
	}

	var outcome string
	if confirmed {
		outcome, err = s.confirm(ctx, log, kind, orderID)
	} else {
		outcome, err = s.reject(ctx, log, orderID)
	}
	if err != nil {
		log.Error("webhook: processing failed", zap.Error(err))
		if relErr := s.guard.Release(ctx, key); relErr != nil {
			log.Error("webhook: release replay guard", zap.Error(relErr))
		}
		return outcomeFailed
	}
	return outcome
}

func (s *Service) confirm(ctx context.Context, log *zap.Logger, kind model.PurchaseKind, orderID int64) (string, error) {
	c, err := s.store.ConfirmPurchase(ctx, orderID, kind)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			log.Info("webhook: order is not pending, nothing to confirm")
			return outcomeDuplicate, nil
		case errors.Is(err, repository.ErrPurchaseMismatch):
			log.Error("webhook: reference does not match order purchase", zap.Error(err))
			return outcomeMismatch, nil
		}
		return "", err
	}

	o := &c.Order
	switch o.Purchase.Kind {
	case model.PurchaseCoupons:
		s.notifier.NotifyUser(ctx, c.TelegramID, notify.CouponsCredited(o.Purchase.Quantity, c.CouponBalance))
	case model.PurchaseSubscription:
		if c.Subscription != nil {
			s.notifier.NotifyUser(ctx, c.TelegramID, notify.SubscriptionActivated(c.Subscription.Type, c.Subscription.ExpiresAt))
		}
	default:
		s.notifier.NotifyUser(ctx, c.TelegramID, notify.OrderConfirmation(o))
		s.notifier.NotifyAdmin(ctx, notify.AdminOrderPaid(o.ID))
	}

	log.Info("webhook: payment confirmed")
	return outcomeConfirmed, nil
}

func (s *Service) reject(ctx context.Context, log *zap.Logger, orderID int64) (string, error) {
	_, err := s.store.TransitionStatus(ctx, orderID, model.OrderStatusPending, model.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			log.Info("webhook: order is not pending, nothing to cancel")
			return outcomeDuplicate, nil
		}
		return "", err
	}

	log.Info("webhook: payment rejected, order cancelled")
	return outcomeCancelled, nil
}
