package model

import (
	"fmt"
	"strconv"
	"strings"
)

// PurchaseKind определяет, что именно оплачивается заказом.
type PurchaseKind string

const (
	PurchaseOrder        PurchaseKind = "order"
	PurchaseCoupons      PurchaseKind = "coupon_purchase"
	PurchaseSubscription PurchaseKind = "subscription_purchase"
)

// Purchase хранит назначение оплаты заказа. Сохраняется в JSONB-колонке orders.purchase.
type Purchase struct {
	Kind             PurchaseKind     `json:"kind"`
	CouponType       CouponType       `json:"couponType,omitempty"`
	Quantity         int              `json:"quantity,omitempty"`
	SubscriptionType SubscriptionType `json:"subscriptionType,omitempty"`
}

// OrderPurchase возвращает назначение обычного заказа еды.
func OrderPurchase() Purchase {
	return Purchase{Kind: PurchaseOrder}
}

// CouponPurchase возвращает назначение покупки пакета купонов.
func CouponPurchase(t CouponType, quantity int) Purchase {
	return Purchase{Kind: PurchaseCoupons, CouponType: t, Quantity: quantity}
}

// SubscriptionPurchase возвращает назначение покупки подписки.
func SubscriptionPurchase(t SubscriptionType) Purchase {
	return Purchase{Kind: PurchaseSubscription, SubscriptionType: t}
}

// Validate проверяет согласованность полей назначения.
func (p Purchase) Validate() error {
	switch p.Kind {
	case PurchaseOrder:
		return nil
	case PurchaseCoupons:
		if !p.CouponType.Valid() {
			return fmt.Errorf("unknown coupon type %q", p.CouponType)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("coupon quantity must be positive, got %d", p.Quantity)
		}
		return nil
	case PurchaseSubscription:
		if !p.SubscriptionType.Valid() {
			return fmt.Errorf("unknown subscription type %q", p.SubscriptionType)
		}
		return nil
	}
	return fmt.Errorf("unknown purchase kind %q", p.Kind)
}

// Marker возвращает текстовую метку назначения, которая пишется в комментарий заказа-покупки.
func (p Purchase) Marker() string {
	switch p.Kind {
	case PurchaseCoupons:
		return fmt.Sprintf("%s:%s:%d", PurchaseCoupons, p.CouponType, p.Quantity)
	case PurchaseSubscription:
		return fmt.Sprintf("%s:%s", PurchaseSubscription, p.SubscriptionType)
	}
	return ""
}

// ParsePurchaseMarker разбирает метку из комментария заказов, созданных до появления колонки purchase.
// Комментарий без метки означает обычный заказ.
func ParsePurchaseMarker(comment string) (Purchase, error) {
	parts := strings.Split(strings.TrimSpace(comment), ":")

	switch PurchaseKind(parts[0]) {
	case PurchaseCoupons:
		if len(parts) != 3 {
			return Purchase{}, fmt.Errorf("malformed coupon marker %q", comment)
		}
		qty, err := strconv.Atoi(parts[2])
		if err != nil {
			return Purchase{}, fmt.Errorf("malformed coupon quantity in %q: %w", comment, err)
		}
		p := CouponPurchase(CouponType(parts[1]), qty)
		return p, p.Validate()
	case PurchaseSubscription:
		if len(parts) != 2 {
			return Purchase{}, fmt.Errorf("malformed subscription marker %q", comment)
		}
		p := SubscriptionPurchase(SubscriptionType(parts[1]))
		return p, p.Validate()
	}

	return OrderPurchase(), nil
}

// HasPurchaseMarker сообщает, начинается ли комментарий с метки покупки купонов или подписки.
func HasPurchaseMarker(comment string) bool {
	c := strings.TrimSpace(comment)
	return strings.HasPrefix(c, string(PurchaseCoupons)+":") || strings.HasPrefix(c, string(PurchaseSubscription)+":")
}
