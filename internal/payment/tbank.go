// Package payment связывает заказы с платёжным шлюзом T-Bank: создаёт платежи
// и обрабатывает асинхронные уведомления об их статусе.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с API эквайринга T-Bank.
type Client struct {
	baseURL     string
	terminalKey string
	password    string
	httpClient  *http.Client
}

// NewClient создаёт клиента T-Bank. timeout ограничивает каждый запрос к шлюзу.
func NewClient(baseURL, terminalKey, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		terminalKey: terminalKey,
		password:    password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// InitRequest описывает создание платежа.
type InitRequest struct {
	Amount          int64
	OrderRef        string
	Description     string
	CustomerKey     string
	NotificationURL string
	SuccessURL      string
	FailURL         string
}

// InitResponse содержит ответ шлюза на создание платежа.
type InitResponse struct {
	Success     bool       `json:"Success"`
	ErrorCode   string     `json:"ErrorCode"`
	TerminalKey string     `json:"TerminalKey"`
	Status      string     `json:"Status"`
	PaymentID   flexString `json:"PaymentId"`
	OrderRef    string     `json:"OrderId"`
	Amount      int64      `json:"Amount"`
	PaymentURL  string     `json:"PaymentURL"`
	Message     string     `json:"Message,omitempty"`
	Details     string     `json:"Details,omitempty"`
}

// flexString принимает и строку, и число: шлюз присылает PaymentId в обоих видах.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// fields возвращает скалярные поля запроса в том виде, в котором они участвуют в подписи.
func (r InitRequest) fields(terminalKey string) map[string]string {
	f := map[string]string{
		"TerminalKey": terminalKey,
		"Amount":      strconv.FormatInt(r.Amount, 10),
		"OrderId":     r.OrderRef,
	}
	optional := map[string]string{
		"Description":     r.Description,
		"CustomerKey":     r.CustomerKey,
		"NotificationURL": r.NotificationURL,
		"SuccessURL":      r.SuccessURL,
		"FailURL":         r.FailURL,
	}
	for k, v := range optional {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

// Init создаёт платёж и возвращает ссылку на платёжную форму.
func (c *Client) Init(ctx context.Context, r InitRequest) (*InitResponse, error) {
	if c == nil || c.terminalKey == "" || c.password == "" {
		return nil, fmt.Errorf("tbank client not configured")
	}

	fields := r.fields(c.terminalKey)

	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["Amount"] = r.Amount
	body[tokenField] = Token(fields, c.password)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal init request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Init", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result InitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success || result.ErrorCode != "0" {
		msg := result.Message
		if msg == "" {
			msg = result.ErrorCode
		}
		return nil, fmt.Errorf("init rejected: %s", msg)
	}

	return &result, nil
}
