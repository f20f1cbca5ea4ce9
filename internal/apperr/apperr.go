// Package apperr описывает типизированные ошибки бизнес-логики и их отображение в HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind классифицирует ошибку.
type Kind string

const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindForbidden            Kind = "FORBIDDEN"
	KindNotFound             Kind = "NOT_FOUND"
	KindItemsUnavailable     Kind = "ITEMS_UNAVAILABLE"
	KindInsufficientBalance  Kind = "INSUFFICIENT_BALANCE"
	KindNoActiveSubscription Kind = "NO_ACTIVE_SUBSCRIPTION"
	KindInvalidTransition    Kind = "INVALID_TRANSITION"
	KindNotAvailable         Kind = "NOT_AVAILABLE"
	KindOrderNotPayable      Kind = "ORDER_NOT_PAYABLE"
	KindPaymentInitFailed    Kind = "PAYMENT_INIT_FAILED"
	KindUpstream             Kind = "UPSTREAM_FAILURE"
	KindInternal             Kind = "INTERNAL_ERROR"
)

type metadata struct {
	status        int
	publicMessage string
}

var metadataByKind = map[Kind]metadata{
	KindValidation:           {http.StatusBadRequest, "validation failed"},
	KindUnauthorized:         {http.StatusUnauthorized, "authentication required"},
	KindForbidden:            {http.StatusForbidden, "access denied"},
	KindNotFound:             {http.StatusNotFound, "resource not found"},
	KindItemsUnavailable:     {http.StatusBadRequest, "some items are unavailable"},
	KindInsufficientBalance:  {http.StatusBadRequest, "insufficient coupon balance"},
	KindNoActiveSubscription: {http.StatusBadRequest, "no active subscription"},
	KindInvalidTransition:    {http.StatusConflict, "status transition is not allowed"},
	KindNotAvailable:         {http.StatusConflict, "order is not available"},
	KindOrderNotPayable:      {http.StatusBadRequest, "order cannot be paid"},
	KindPaymentInitFailed:    {http.StatusBadGateway, "failed to initiate payment"},
	KindUpstream:             {http.StatusBadGateway, "upstream service failed"},
	KindInternal:             {http.StatusInternalServerError, "internal server error"},
}

// HTTPStatus возвращает HTTP-статус для вида ошибки.
func HTTPStatus(kind Kind) int {
	if m, ok := metadataByKind[kind]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// PublicMessage возвращает сообщение по умолчанию для вида ошибки.
func PublicMessage(kind Kind) string {
	if m, ok := metadataByKind[kind]; ok {
		return m.publicMessage
	}
	return metadataByKind[KindInternal].publicMessage
}

// Error описывает ошибку бизнес-логики: вид, сообщение для клиента и причину.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

// New создаёт ошибку указанного вида.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = PublicMessage(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Newf создаёт ошибку с форматированным сообщением.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap создаёт ошибку указанного вида поверх причины.
func Wrap(kind Kind, err error, message string) *Error {
	e := New(kind, message)
	e.cause = err
	return e
}

// WithDetail добавляет поле в детали ошибки.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// As извлекает *Error из цепочки ошибок.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf возвращает вид ошибки. Ошибки без вида считаются внутренними.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is сообщает, относится ли ошибка к указанному виду.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// InvalidTransition создаёт ошибку недопустимого перехода статуса.
func InvalidTransition(from, to string) *Error {
	return Newf(KindInvalidTransition, "cannot transition from %q to %q", from, to).
		WithDetail("current", from).
		WithDetail("requested", to)
}
