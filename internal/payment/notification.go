package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnparseable возвращается, если тело уведомления нельзя разобрать.
var ErrUnparseable = errors.New("unparseable payment notification")

// Статусы платежа, на которые реагирует обработчик уведомлений.
const (
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
)

// Notification содержит уведомление T-Bank о смене статуса платежа.
type Notification struct {
	TerminalKey string
	OrderRef    string
	PaymentID   string
	Status      string
	Success     bool
	ErrorCode   string
	Amount      int64
	Token       string

	// Fields содержит все скалярные поля в том виде, в котором они пришли, для проверки подписи.
	Fields map[string]string
}

// ParseNotification разбирает JSON-уведомление. Вложенные объекты и null в подписи не участвуют.
func ParseNotification(body []byte) (*Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	n := &Notification{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case json.Number:
			s = val.String()
		case bool:
			s = strconv.FormatBool(val)
		default:
			continue
		}

		if k == tokenField {
			n.Token = s
			continue
		}
		n.Fields[k] = s
	}

	n.TerminalKey = n.Fields["TerminalKey"]
	n.OrderRef = n.Fields["OrderId"]
	n.PaymentID = n.Fields["PaymentId"]
	n.Status = n.Fields["Status"]
	n.ErrorCode = n.Fields["ErrorCode"]
	n.Success = n.Fields["Success"] == "true"

	if n.OrderRef == "" || n.Status == "" {
		return nil, fmt.Errorf("%w: OrderId and Status are required", ErrUnparseable)
	}

	if amount := n.Fields["Amount"]; amount != "" {
		v, err := strconv.ParseInt(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: Amount %q", ErrUnparseable, amount)
		}
		n.Amount = v
	}

	return n, nil
}
