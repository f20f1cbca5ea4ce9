package order

import "github.com/mmeshcher/lunchbox/internal/model"

// adminTransitions перечисляет переходы, доступные администратору.
// delivering → delivered выполняется только через Complete.
var adminTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPaid:      {model.OrderStatusReady, model.OrderStatusCancelled},
	model.OrderStatusPreparing: {model.OrderStatusReady, model.OrderStatusCancelled},
	model.OrderStatusReady:     {model.OrderStatusDelivering, model.OrderStatusCancelled},
}

// CanTransition сообщает, разрешён ли переход статуса администратором.
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range adminTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
