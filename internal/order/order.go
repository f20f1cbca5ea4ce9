// Package order управляет жизненным циклом заказа: созданием, сменой статусов и доставкой.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/catalog"
	"github.com/mmeshcher/lunchbox/internal/metrics"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/notify"
	"github.com/mmeshcher/lunchbox/internal/repository"
	"github.com/mmeshcher/lunchbox/internal/validation"
)

const (
	userOrdersLimit   = 50
	defaultAdminLimit = 50
	maxAdminLimit     = 200
)

// legacyCouponMethod принимается от старых клиентов как синоним оплаты купоном.
const legacyCouponMethod = "talon"

// Store описывает хранилище заказов.
type Store interface {
	CreateOrder(ctx context.Context, no model.NewOrder) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	ListCourierOrdersSince(ctx context.Context, courierID int64, since time.Time) ([]model.Order, error)
	TransitionStatus(ctx context.Context, id int64, from, to model.OrderStatus) (int64, error)
	AssignCourier(ctx context.Context, id, courierID int64) (int64, error)
	CompleteDelivery(ctx context.Context, id, callerID int64, isAdmin bool) (int64, error)
	GetStats(ctx context.Context, since time.Time) (*model.Stats, error)
}

// Pricer считает стоимость заказа по каталогу.
type Pricer interface {
	Price(ctx context.Context, requested []model.ItemRequest) (*catalog.Priced, error)
}

// Notifier отправляет уведомления без ожидания результата.
type Notifier interface {
	NotifyUser(ctx context.Context, chatID int64, text string)
	NotifyAdmin(ctx context.Context, text string)
}

// CreateRequest описывает заказ, присланный клиентом.
type CreateRequest struct {
	Items         []model.ItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	DeliveryRoom  string              `json:"deliveryRoom" validate:"required,max=100"`
	DeliveryTime  string              `json:"deliveryTime" validate:"required,max=50"`
	Comment       string              `json:"comment" validate:"max=500"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod" validate:"required,oneof=card coupon subscription"`
	CouponType    model.CouponType    `json:"couponType" validate:"omitempty,oneof=lunch coffee"`
}

func (r *CreateRequest) normalize() {
	r.DeliveryRoom = strings.TrimSpace(r.DeliveryRoom)
	r.DeliveryTime = strings.TrimSpace(r.DeliveryTime)
	r.Comment = strings.TrimSpace(r.Comment)
	if r.PaymentMethod == legacyCouponMethod {
		r.PaymentMethod = model.PaymentCoupon
	}
	if r.CouponType == "" {
		r.CouponType = model.CouponLunch
	}
}

// Service реализует операции над заказами.
type Service struct {
	store    Store
	pricer   Pricer
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService создаёт сервис заказов.
func NewService(store Store, pricer Pricer, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		pricer:   pricer,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "order")),
		metrics:  m,
		now:      time.Now,
	}
}

// Create проверяет запрос, считает сумму по каталогу и атомарно сохраняет заказ.
// Заказ, оплаченный купоном или подпиской, сразу получает статус paid.
func (s *Service) Create(ctx context.Context, user *model.User, req CreateRequest) (*model.Order, error) {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if model.HasPurchaseMarker(req.Comment) {
		return nil, apperr.New(apperr.KindValidation, "").WithDetail("comment", "reserved")
	}

	priced, err := s.pricer.Price(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	no := model.NewOrder{
		UserID:        user.ID,
		Status:        req.PaymentMethod.InitialStatus(),
		TotalKopecks:  priced.TotalKopecks,
		DeliveryRoom:  req.DeliveryRoom,
		DeliveryTime:  req.DeliveryTime,
		Comment:       req.Comment,
		PaymentMethod: req.PaymentMethod,
		Purchase:      model.OrderPurchase(),
		Items:         priced.Items,
	}
	switch req.PaymentMethod {
	case model.PaymentCoupon:
		t := req.CouponType
		no.DebitCoupon = &t
	case model.PaymentSubscription:
		no.RequireSubscription = model.SubscriptionsCovering(req.CouponType)
	}

	o, err := s.store.CreateOrder(ctx, no)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, apperr.New(apperr.KindInsufficientBalance, "").WithDetail("type", req.CouponType)
		case errors.Is(err, repository.ErrNoActiveSubscription):
			return nil, apperr.New(apperr.KindNoActiveSubscription, "").WithDetail("type", req.CouponType)
		case errors.Is(err, repository.ErrUnknownItem):
			return nil, apperr.Wrap(apperr.KindItemsUnavailable, err, "")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrderCreated(string(o.PaymentMethod))
	s.logger.Info("order created",
		zap.Int64("orderID", o.ID),
		zap.Int64("userID", user.ID),
		zap.String("paidWith", string(o.PaymentMethod)),
		zap.Int64("total", o.TotalKopecks),
	)

	if o.PaymentMethod != model.PaymentCard {
		s.notifier.NotifyUser(ctx, user.TelegramID, notify.OrderConfirmation(o))
		s.notifier.NotifyAdmin(ctx, notify.AdminNewOrder(o.ID, o.PaymentMethod))
	}

	return o, nil
}

// Get возвращает заказ владельцу или администратору.
func (s *Service) Get(ctx context.Context, caller *model.User, id int64) (*model.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, err
	}
	if o.UserID != caller.ID && !caller.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "")
	}
	return o, nil
}

// ListForUser возвращает последние заказы пользователя.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID, userOrdersLimit)
	if err != nil {
		return nil, err
	}
	return nonNil(orders), nil
}

// AdminList возвращает заказы для администратора с данными заказчика.
func (s *Service) AdminList(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", status)
	}
	switch {
	case limit <= 0:
		limit = defaultAdminLimit
	case limit > maxAdminLimit:
		limit = maxAdminLimit
	}

	orders, err := s.store.ListOrders(ctx, model.OrderFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, err
	}
	return nonNil(orders), nil
}

// UpdateStatus переводит заказ в новый статус по таблице переходов администратора.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", to)
	}

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		s.metrics.Transition(string(to), metrics.ResultRejected)
		return nil, apperr.InvalidTransition(string(o.Status), string(to))
	}

	telegramID, err := s.store.TransitionStatus(ctx, orderID, o.Status, to)
	if err != nil {
		if !errors.Is(err, repository.ErrStatusConflict) {
			s.metrics.Transition(string(to), metrics.ResultError)
			return nil, err
		}
		s.metrics.Transition(string(to), metrics.ResultConflict)
		current := o.Status
		if fresh, getErr := s.store.GetOrder(ctx, orderID); getErr == nil {
			current = fresh.Status
		}
		return nil, apperr.InvalidTransition(string(current), string(to))
	}
	s.metrics.Transition(string(to), metrics.ResultOK)

	s.logger.Info("order status changed",
		zap.Int64("orderID", orderID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)),
	)

	if text, ok := notify.StatusChanged(orderID, to); ok {
		s.notifier.NotifyUser(ctx, telegramID, text)
	}

	o.Status = to
	return o, nil
}

// Pickup закрепляет готовый заказ за курьером и переводит его в доставку.
func (s *Service) Pickup(ctx context.Context, courier *model.User, orderID int64) error {
	telegramID, err := s.store.AssignCourier(ctx, orderID, courier.ID)
	if err != nil {
		return s.deliveryError(err, "order is not ready for pickup")
	}
	s.metrics.Transition(string(model.OrderStatusDelivering), metrics.ResultOK)

	s.logger.Info("order picked up", zap.Int64("orderID", orderID), zap.Int64("courierID", courier.ID))
	s.notifier.NotifyUser(ctx, telegramID, notify.PickedUp(orderID))
	return nil
}

// Complete отмечает заказ доставленным. Разрешено закреплённому курьеру или администратору.
func (s *Service) Complete(ctx context.Context, caller *model.User, orderID int64) error {
	telegramID, err := s.store.CompleteDelivery(ctx, orderID, caller.ID, caller.IsAdmin())
	if err != nil {
		return s.deliveryError(err, "order is not being delivered by you")
	}
	s.metrics.Transition(string(model.OrderStatusDelivered), metrics.ResultOK)

	s.logger.Info("order delivered", zap.Int64("orderID", orderID), zap.Int64("callerID", caller.ID))
	s.notifier.NotifyUser(ctx, telegramID, notify.Delivered(orderID))
	return nil
}

func (s *Service) deliveryError(err error, message string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		s.metrics.Transition("delivery", metrics.ResultConflict)
		return apperr.New(apperr.KindNotAvailable, message)
	}
	s.metrics.Transition("delivery", metrics.ResultError)
	return err
}

// ReadyQueue возвращает заказы, ожидающие курьера, старые первыми.
func (s *Service) ReadyQueue(ctx context.Context) ([]model.Order, error) {
	orders, err := s.store.ListOrdersByStatus(ctx, model.OrderStatusReady)
	if err != nil {
		return nil, err
	}
	return nonNil(orders), nil
}

// History возвращает сегодняшние доставки курьера со сводкой.
func (s *Service) History(ctx context.Context, courierID int64) (*model.DeliveryHistory, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	orders, err := s.store.ListCourierOrdersSince(ctx, courierID, today)
	if err != nil {
		return nil, err
	}

	h := &model.DeliveryHistory{Orders: nonNil(orders)}
	for _, o := range h.Orders {
		switch o.Status {
		case model.OrderStatusDelivered:
			h.Stats.Delivered++
		case model.OrderStatusDelivering:
			h.Stats.InProgress++
		}
	}
	h.Stats.Total = len(h.Orders)
	return h, nil
}

// Stats возвращает статистику за период. Пустой период означает неделю.
func (s *Service) Stats(ctx context.Context, period model.StatsPeriod) (*model.Stats, error) {
	switch period {
	case "":
		period = model.PeriodWeek
	case model.PeriodDay, model.PeriodWeek, model.PeriodMonth:
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown period %q", period)
	}

	since := s.now().AddDate(0, 0, -period.Days())
	st, err := s.store.GetStats(ctx, since)
	if err != nil {
		return nil, err
	}

	st.Period = period
	if st.OrdersByStatus == nil {
		st.OrdersByStatus = []model.StatusCount{}
	}
	if st.TopDishes == nil {
		st.TopDishes = []model.DishStats{}
	}
	if st.PaymentMethods == nil {
		st.PaymentMethods = []model.MethodCount{}
	}
	return st, nil
}

func nonNil(orders []model.Order) []model.Order {
	if orders == nil {
		return []model.Order{}
	}
	return orders
}
