// Package model содержит доменные сущности сервиса lunchbox.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
)

// User представляет пользователя, пришедшего из Telegram.
type User struct {
	ID              int64     `json:"id"`
	TelegramID      int64     `json:"telegramId"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName,omitempty"`
	Username        string    `json:"username,omitempty"`
	Role            Role      `json:"role"`
	NotifyDailyMenu bool      `json:"notifyDailyMenu"`
	CreatedAt       time.Time `json:"createdAt"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivering, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentCoupon       PaymentMethod = "coupon"
	PaymentSubscription PaymentMethod = "subscription"
)

// InitialStatus возвращает статус, с которым создаётся заказ при данном способе оплаты.
func (m PaymentMethod) InitialStatus() OrderStatus {
	if m == PaymentCard {
		return OrderStatusPending
	}
	return OrderStatusPaid
}

// Order описывает заказ пользователя.
type Order struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"userId"`
	Status        OrderStatus   `json:"status"`
	TotalKopecks  int64         `json:"totalKopecks"`
	DeliveryRoom  string        `json:"deliveryRoom"`
	DeliveryTime  string        `json:"deliveryTime"`
	Comment       string        `json:"comment,omitempty"`
	PaymentMethod PaymentMethod `json:"paidWith"`
	Purchase      Purchase      `json:"purchase"`
	CourierID     *int64        `json:"courierId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Items         []OrderItem   `json:"items"`

	// Customer заполняется только в выборках для администратора и курьера.
	Customer *Customer `json:"customer,omitempty"`
}

// Customer содержит контактные данные заказчика.
type Customer struct {
	TelegramID int64  `json:"telegramId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName,omitempty"`
	Username   string `json:"username,omitempty"`
}

// OrderItem описывает позицию заказа со снимком цены на момент создания.
type OrderItem struct {
	ID           int64  `json:"id,omitempty"`
	OrderID      int64  `json:"orderId,omitempty"`
	ItemID       int64  `json:"itemId"`
	ItemName     string `json:"itemName"`
	Quantity     int    `json:"quantity"`
	PriceKopecks int64  `json:"priceKopecks"`
}

// ItemRequest описывает запрошенную клиентом позицию.
type ItemRequest struct {
	ItemID   int64 `json:"itemId" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0,lte=50"`
}

// NewOrder содержит данные для атомарного создания заказа.
type NewOrder struct {
	UserID        int64
	Status        OrderStatus
	TotalKopecks  int64
	DeliveryRoom  string
	DeliveryTime  string
	Comment       string
	PaymentMethod PaymentMethod
	Purchase      Purchase
	Items         []OrderItem

	// DebitCoupon задаёт тип купона, который списывается вместе с созданием заказа.
	DebitCoupon *CouponType
	// RequireSubscription задаёт типы подписок, одна из которых должна быть активна.
	RequireSubscription []SubscriptionType
}

// OrderFilter ограничивает выборку заказов для администратора.
type OrderFilter struct {
	Status OrderStatus
	Limit  int
}

// DeliveryHistory содержит заказы курьера за сегодня и сводку по ним.
type DeliveryHistory struct {
	Orders []Order        `json:"orders"`
	Stats  DeliveryCounts `json:"stats"`
}

// DeliveryCounts содержит счётчики доставок.
type DeliveryCounts struct {
	Delivered  int `json:"delivered"`
	InProgress int `json:"inProgress"`
	Total      int `json:"total"`
}

// PaymentRecord связывает заказ с платежом во внешнем шлюзе.
type PaymentRecord struct {
	ID               int64     `json:"id"`
	OrderID          int64     `json:"orderId"`
	GatewayPaymentID string    `json:"paymentId"`
	GatewayOrderRef  string    `json:"orderRef"`
	AmountKopecks    int64     `json:"amountKopecks"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PaymentConfirmation содержит результат подтверждения оплаты заказа.
type PaymentConfirmation struct {
	Order      Order
	TelegramID int64

	// CouponBalance содержит остаток купонов после начисления.
	CouponBalance int
	// Subscription заполняется при покупке подписки.
	Subscription *Subscription
}
