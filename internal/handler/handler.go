// Package handler содержит HTTP-обработчики API сервиса lunchbox.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/broadcast"
	"github.com/mmeshcher/lunchbox/internal/metrics"
	"github.com/mmeshcher/lunchbox/internal/middleware"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/order"
	"github.com/mmeshcher/lunchbox/internal/payment"
	"github.com/mmeshcher/lunchbox/internal/response"
	"github.com/mmeshcher/lunchbox/internal/validation"
)

const (
	maxBodyBytes    = 1 << 20
	maxWebhookBytes = 64 << 10
)

// OrderService описывает операции над заказами.
type OrderService interface {
	Create(ctx context.Context, user *model.User, req order.CreateRequest) (*model.Order, error)
	Get(ctx context.Context, caller *model.User, id int64) (*model.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Order, error)
	AdminList(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, to model.OrderStatus) (*model.Order, error)
	Pickup(ctx context.Context, courier *model.User, orderID int64) error
	Complete(ctx context.Context, caller *model.User, orderID int64) error
	ReadyQueue(ctx context.Context) ([]model.Order, error)
	History(ctx context.Context, courierID int64) (*model.DeliveryHistory, error)
	Stats(ctx context.Context, period model.StatsPeriod) (*model.Stats, error)
}

// PaymentService описывает платёжные операции.
type PaymentService interface {
	Initiate(ctx context.Context, userID, orderID int64) (*payment.InitResult, error)
	BuyCoupons(ctx context.Context, user *model.User, t model.CouponType, quantity int) (*payment.InitResult, error)
	BuySubscription(ctx context.Context, user *model.User, t model.SubscriptionType) (*payment.InitResult, error)
	HandleWebhook(ctx context.Context, body []byte)
}

// LedgerService описывает чтение балансов и подписок.
type LedgerService interface {
	Balances(ctx context.Context, userID int64) ([]model.CouponBalance, error)
	History(ctx context.Context, userID int64, t model.CouponType) ([]model.BalanceTransaction, error)
	ActiveSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error)
}

// CatalogService отдаёт меню.
type CatalogService interface {
	Menu(ctx context.Context, day time.Time) (*model.Menu, error)
}

// ProfileService меняет настройки пользователя.
type ProfileService interface {
	SetNotifications(ctx context.Context, userID int64, enabled bool) error
}

// BroadcastService рассылает меню дня.
type BroadcastService interface {
	DailyMenu(ctx context.Context, day time.Time) (*broadcast.Result, error)
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services объединяет зависимости обработчиков.
type Services struct {
	Orders    OrderService
	Payments  PaymentService
	Ledger    LedgerService
	Catalog   CatalogService
	Profile   ProfileService
	Broadcast BroadcastService
	Health    Pinger

	// CronSecret открывает доступ к плановым задачам. Пустое значение закрывает их.
	CronSecret string
}

// Handler реализует HTTP-обработчики API сервиса lunchbox.
type Handler struct {
	orders    OrderService
	payments  PaymentService
	ledger    LedgerService
	catalog   CatalogService
	profile   ProfileService
	broadcast BroadcastService
	health    Pinger
	cronToken string

	logger         *zap.Logger
	metrics        *metrics.Metrics
	authMiddleware *middleware.AuthMiddleware
	now            func() time.Time
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Services, logger *zap.Logger, m *metrics.Metrics, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		orders:         s.Orders,
		payments:       s.Payments,
		ledger:         s.Ledger,
		catalog:        s.Catalog,
		profile:        s.Profile,
		broadcast:      s.Broadcast,
		health:         s.Health,
		cronToken:      s.CronSecret,
		logger:         logger,
		metrics:        m,
		authMiddleware: auth,
		now:            time.Now,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	response.Error(w, h.logger, err)
}

// decode читает JSON-тело запроса и проверяет его по тегам validate.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !h.decodeJSON(w, r, dst) {
		return false
	}
	if err := validation.Struct(dst); err != nil {
		h.writeError(w, err)
		return false
	}
	return true
}

// decodeJSON читает JSON-тело запроса без проверки полей.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, apperr.New(apperr.KindValidation, "request body too large"))
			return false
		}
		h.writeError(w, apperr.Wrap(apperr.KindValidation, err, "invalid JSON body"))
		return false
	}
	return true
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		h.writeError(w, apperr.New(apperr.KindUnauthorized, ""))
		return nil, false
	}
	return u, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.KindValidation, "invalid %s", name)
	}
	return id, nil
}

// Menu возвращает меню на сегодня.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.catalog.Menu(r.Context(), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, menu)
}

// DailyMenuBroadcast рассылает меню на текущий день (UTC) подписчикам.
func (h *Handler) DailyMenuBroadcast(w http.ResponseWriter, r *http.Request) {
	res, err := h.broadcast.DailyMenu(r.Context(), h.now().UTC())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

type profileResponse struct {
	User          *model.User           `json:"user"`
	Coupons       []model.CouponBalance `json:"coupons"`
	Subscriptions []model.Subscription  `json:"subscriptions"`
}

// Me возвращает профиль текущего пользователя с балансами и подписками.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	balances, err := h.ledger.Balances(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	subs, err := h.ledger.ActiveSubscriptions(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, profileResponse{User: u, Coupons: balances, Subscriptions: subs})
}

type notificationsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetNotifications включает или выключает рассылку меню дня.
func (h *Handler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req notificationsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.profile.SetNotifications(r.Context(), u.ID, *req.Enabled); err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"notifyDailyMenu": *req.Enabled})
}

// CouponBalance возвращает баланс купонов текущего пользователя.
func (h *Handler) CouponBalance(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	balances, err := h.ledger.Balances(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, balances)
}

// CouponHistory возвращает журнал изменений баланса купонов одного вида.
func (h *Handler) CouponHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	t := model.CouponType(r.URL.Query().Get("type"))
	if t == "" {
		t = model.CouponLunch
	}

	txs, err := h.ledger.History(r.Context(), u.ID, t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, txs)
}

type buyCouponsRequest struct {
	Type     model.CouponType `json:"type" validate:"required,oneof=lunch coffee"`
	Quantity int              `json:"quantity" validate:"required,gt=0"`
}

// BuyCoupons создаёт платёж за пакет купонов.
func (h *Handler) BuyCoupons(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req buyCouponsRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.payments.BuyCoupons(r.Context(), u, req.Type, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

type buySubscriptionRequest struct {
	Type model.SubscriptionType `json:"type" validate:"required"`
}

// BuySubscription создаёт платёж за подписку.
func (h *Handler) BuySubscription(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req buySubscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.payments.BuySubscription(r.Context(), u, req.Type)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

type orderIDRequest struct {
	OrderID int64 `json:"orderId" validate:"required,gt=0"`
}

// InitPayment создаёт платёж за заказ в статусе pending.
func (h *Handler) InitPayment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req orderIDRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.payments.Initiate(r.Context(), u.ID, req.OrderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// PaymentWebhook принимает уведомления T-Bank. Ответ всегда 200 OK,
// иначе шлюз будет повторять уведомление.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.logger.Error("webhook: read body", zap.Error(err))
	} else {
		h.payments.HandleWebhook(context.WithoutCancel(r.Context()), body)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HealthLive сообщает, что процесс жив.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// HealthReady проверяет доступность базы данных.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.health.Ping(ctx); err != nil {
			h.writeError(w, apperr.Wrap(apperr.KindUpstream, err, "database is unavailable"))
			return
		}
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
