package handler

import (
	"net/http"
	"strconv"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/order"
	"github.com/mmeshcher/lunchbox/internal/response"
)

// CreateOrder создаёт заказ текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req order.CreateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.Create(r.Context(), u, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, o)
}

// ListOrders возвращает последние заказы текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListForUser(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	o, err := h.orders.Get(r.Context(), u, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, o)
}

type deliveryResult struct {
	Success bool              `json:"success"`
	OrderID int64             `json:"orderId"`
	Status  model.OrderStatus `json:"status"`
}

// DeliveryQueue возвращает заказы, ожидающие курьера.
func (h *Handler) DeliveryQueue(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ReadyQueue(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, orders)
}

// Pickup закрепляет готовый заказ за курьером.
func (h *Handler) Pickup(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req orderIDRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.orders.Pickup(r.Context(), u, req.OrderID); err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deliveryResult{Success: true, OrderID: req.OrderID, Status: model.OrderStatusDelivering})
}

// Complete отмечает заказ доставленным.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req orderIDRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.orders.Complete(r.Context(), u, req.OrderID); err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deliveryResult{Success: true, OrderID: req.OrderID, Status: model.OrderStatusDelivered})
}

// DeliveryHistory возвращает сегодняшние доставки курьера.
func (h *Handler) DeliveryHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	history, err := h.orders.History(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, history)
}

// AdminOrders возвращает заказы для администратора.
func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, apperr.New(apperr.KindValidation, "invalid limit"))
			return
		}
		limit = v
	}

	orders, err := h.orders.AdminList(r.Context(), model.OrderStatus(q.Get("status")), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	OrderID int64             `json:"orderId" validate:"required,gt=0"`
	Status  model.OrderStatus `json:"status" validate:"required"`
}

// UpdateOrderStatus меняет статус заказа по таблице переходов администратора.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), req.OrderID, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, o)
}

// AdminStats возвращает статистику за период.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.orders.Stats(r.Context(), model.StatsPeriod(r.URL.Query().Get("period")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}
