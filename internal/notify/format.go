package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/lunchbox/internal/model"
)

var statusLabels = map[model.OrderStatus]string{
	model.OrderStatusReady:      "✅ Ваш заказ готов и ожидает курьера!",
	model.OrderStatusCancelled:  "❌ Ваш заказ был отменён.",
	model.OrderStatusDelivering: "🚗 Ваш заказ передан курьеру!",
}

// Rubles форматирует сумму в копейках как целые рубли с разделителем разрядов.
func Rubles(kopecks int64) string {
	digits := decimal.New(kopecks, -2).Round(0).StringFixed(0)

	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " ₽"
}

// Plural выбирает форму слова для числа по правилам русского языка.
func Plural(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	switch mod100 := n % 100; {
	case mod100 >= 11 && mod100 <= 14:
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}

func coupons(n int) string {
	return fmt.Sprintf("%d %s", n, Plural(n, "купон", "купона", "купонов"))
}

// OrderConfirmation формирует сообщение о принятом заказе.
func OrderConfirmation(o *model.Order) string {
	lines := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		line := "  • " + html.EscapeString(it.ItemName)
		if it.Quantity > 1 {
			line += fmt.Sprintf(" × %d", it.Quantity)
		}
		lines = append(lines, line)
	}

	return strings.Join([]string{
		fmt.Sprintf("✅ <b>Заказ #%d принят!</b>", o.ID),
		"",
		strings.Join(lines, "\n"),
		"",
		"💰 Итого: " + Rubles(o.TotalKopecks),
		"📍 Доставка: " + html.EscapeString(o.DeliveryRoom),
		"🕐 Время: " + html.EscapeString(o.DeliveryTime),
	}, "\n")
}

// AdminNewOrder формирует уведомление администратору о новом заказе.
func AdminNewOrder(orderID int64, method model.PaymentMethod) string {
	return fmt.Sprintf("🆕 Новый заказ #%d (%s)", orderID, method)
}

// AdminOrderPaid формирует уведомление администратору об оплате картой.
func AdminOrderPaid(orderID int64) string {
	return fmt.Sprintf("✅ Оплачен заказ #%d (T-Bank)", orderID)
}

// StatusChanged формирует сообщение о смене статуса администратором.
// Для статусов без подписи возвращает false.
func StatusChanged(orderID int64, status model.OrderStatus) (string, bool) {
	label, ok := statusLabels[status]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s\n\nЗаказ #%d", label, orderID), true
}

// PickedUp формирует сообщение о том, что курьер забрал заказ.
func PickedUp(orderID int64) string {
	return fmt.Sprintf("🚗 <b>Ваш заказ #%d забрал курьер!</b>\n\nОжидайте доставку.", orderID)
}

// Delivered формирует сообщение о доставке.
func Delivered(orderID int64) string {
	return fmt.Sprintf("🎉 <b>Заказ #%d доставлен!</b>\n\nПриятного аппетита!", orderID)
}

// CouponsCredited формирует сообщение о зачислении купонов.
func CouponsCredited(quantity, balance int) string {
	return "✅ <b>Купоны зачислены!</b>\n\n" +
		"Куплено: " + coupons(quantity) + "\n" +
		"Баланс: " + coupons(balance)
}

// SubscriptionActivated формирует сообщение об активации подписки.
func SubscriptionActivated(t model.SubscriptionType, expiresAt time.Time) string {
	return "✅ <b>Подписка активирована!</b>\n\n" +
		"Тариф: " + t.DisplayName() + "\n" +
		"Действует до: " + expiresAt.Format("02.01.2006")
}

var weekdays = [...]string{"воскресенье", "понедельник", "вторник", "среду", "четверг", "пятницу", "субботу"}

var months = [...]string{"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря"}

// DailyMenu формирует рассылку меню дня.
func DailyMenu(day time.Time, items []model.MenuItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽 <b>Меню на %s, %d %s</b>\n\n", weekdays[day.Weekday()], day.Day(), months[day.Month()-1])

	for _, it := range items {
		fmt.Fprintf(&b, "• <b>%s</b> - %s\n", html.EscapeString(it.Name), Rubles(it.PriceKopecks))
		if it.Description != "" {
			fmt.Fprintf(&b, "  <i>%s</i>\n", html.EscapeString(it.Description))
		}
	}

	b.WriteString("\nПриятного аппетита! 🍴")
	return b.String()
}
