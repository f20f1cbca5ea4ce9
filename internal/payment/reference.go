package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmeshcher/lunchbox/internal/model"
)

// ErrBadReference возвращается для ссылки на заказ неизвестного формата.
var ErrBadReference = errors.New("bad gateway order reference")

const (
	couponPrefix       = "coupon-"
	legacyCouponPrefix = "talon-"
	subscriptionPrefix = "sub-"
)

// FormatReference строит ссылку на заказ для платёжного шлюза.
// Префикс определяет назначение оплаты, чтобы уведомление можно было разобрать без обращения к БД.
func FormatReference(kind model.PurchaseKind, orderID int64) string {
	id := strconv.FormatInt(orderID, 10)
	switch kind {
	case model.PurchaseCoupons:
		return couponPrefix + id
	case model.PurchaseSubscription:
		return subscriptionPrefix + id
	}
	return id
}

// ParseReference восстанавливает назначение оплаты и идентификатор заказа из ссылки.
func ParseReference(ref string) (model.PurchaseKind, int64, error) {
	kind := model.PurchaseOrder
	rest := ref

	switch {
	case strings.HasPrefix(ref, couponPrefix):
		kind, rest = model.PurchaseCoupons, strings.TrimPrefix(ref, couponPrefix)
	case strings.HasPrefix(ref, legacyCouponPrefix):
		kind, rest = model.PurchaseCoupons, strings.TrimPrefix(ref, legacyCouponPrefix)
	case strings.HasPrefix(ref, subscriptionPrefix):
		kind, rest = model.PurchaseSubscription, strings.TrimPrefix(ref, subscriptionPrefix)
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	return kind, id, nil
}
