package model

import "time"

// CouponType описывает вид предоплаченного купона.
type CouponType string

const (
	CouponLunch  CouponType = "lunch"
	CouponCoffee CouponType = "coffee"
)

// CouponTypes перечисляет все виды купонов в порядке отображения.
var CouponTypes = []CouponType{CouponLunch, CouponCoffee}

// Valid сообщает, известен ли вид купона.
func (t CouponType) Valid() bool {
	return t == CouponLunch || t == CouponCoffee
}

// CouponBalance содержит остаток купонов одного вида.
type CouponBalance struct {
	Type    CouponType `json:"type"`
	Balance int        `json:"balance"`
}

// BalanceTransaction описывает изменение баланса купонов.
type BalanceTransaction struct {
	ID          int64      `json:"id"`
	CouponID    int64      `json:"couponId"`
	Type        CouponType `json:"type"`
	OrderID     *int64     `json:"orderId,omitempty"`
	Delta       int        `json:"delta"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SubscriptionType описывает тариф подписки.
type SubscriptionType string

const (
	SubscriptionLunch       SubscriptionType = "lunch"
	SubscriptionCoffee      SubscriptionType = "coffee"
	SubscriptionLunchCoffee SubscriptionType = "lunch_coffee"
)

// Valid сообщает, известен ли тариф.
func (t SubscriptionType) Valid() bool {
	switch t {
	case SubscriptionLunch, SubscriptionCoffee, SubscriptionLunchCoffee:
		return true
	}
	return false
}

// DisplayName возвращает название тарифа для пользователя.
func (t SubscriptionType) DisplayName() string {
	switch t {
	case SubscriptionLunch:
		return "Бизнес-ланч"
	case SubscriptionCoffee:
		return "Кофе"
	case SubscriptionLunchCoffee:
		return "Бизнес-ланч + Кофе"
	}
	return string(t)
}

// SubscriptionsCovering возвращает тарифы, дающие право на заказ указанной категории.
func SubscriptionsCovering(c CouponType) []SubscriptionType {
	if c == CouponCoffee {
		return []SubscriptionType{SubscriptionCoffee, SubscriptionLunchCoffee}
	}
	return []SubscriptionType{SubscriptionLunch, SubscriptionLunchCoffee}
}

// SubscriptionDuration задаёт срок действия купленной подписки.
const SubscriptionDuration = 30 * 24 * time.Hour

// Subscription описывает подписку пользователя.
type Subscription struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	Type      SubscriptionType `json:"type"`
	Active    bool             `json:"active"`
	ExpiresAt time.Time        `json:"expiresAt"`
	CreatedAt time.Time        `json:"createdAt"`
}

// IsActive сообщает, действует ли подписка в момент now.
func (s Subscription) IsActive(now time.Time) bool {
	return s.Active && s.ExpiresAt.After(now)
}

// CouponPackage описывает пакет купонов, доступный для покупки.
type CouponPackage struct {
	Quantity     int    `json:"quantity"`
	PriceKopecks int64  `json:"priceKopecks"`
	Label        string `json:"label"`
}

// CouponPackages перечисляет пакеты купонов.
var CouponPackages = []CouponPackage{
	{Quantity: 5, PriceKopecks: 150000, Label: "5 купонов"},
	{Quantity: 10, PriceKopecks: 280000, Label: "10 купонов"},
	{Quantity: 20, PriceKopecks: 500000, Label: "20 купонов"},
}

// FindCouponPackage ищет пакет по количеству купонов.
func FindCouponPackage(quantity int) (CouponPackage, bool) {
	for _, p := range CouponPackages {
		if p.Quantity == quantity {
			return p, true
		}
	}
	return CouponPackage{}, false
}

// SubscriptionPlan описывает тариф, доступный для покупки.
type SubscriptionPlan struct {
	Type         SubscriptionType `json:"type"`
	Name         string           `json:"name"`
	PriceKopecks int64            `json:"priceKopecks"`
}

// SubscriptionPlans перечисляет продаваемые тарифы.
var SubscriptionPlans = []SubscriptionPlan{
	{Type: SubscriptionLunch, Name: "Бизнес-ланч", PriceKopecks: 350000},
	{Type: SubscriptionCoffee, Name: "Кофе", PriceKopecks: 150000},
}

// FindSubscriptionPlan ищет тариф по типу.
func FindSubscriptionPlan(t SubscriptionType) (SubscriptionPlan, bool) {
	for _, p := range SubscriptionPlans {
		if p.Type == t {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}
