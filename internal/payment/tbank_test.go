package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	fields := map[string]string{
		"TerminalKey": "TinkoffBankTest",
		"Amount":      "19200",
		"OrderId":     "21090",
		"Description": "Подарочная карта на 1000 рублей",
		"Token":       "ignored",
	}

	got := Token(fields, "usaf8fw8fsw21g")
	assert.Equal(t, "44a2c8230d1154e7e67c36eceb381690a6c5ee4e969353d79e319fceca64285f", got)
}

func TestVerifyToken(t *testing.T) {
	fields := map[string]string{
		"Amount":  "100000",
		"OrderId": "coupon-7",
		"Status":  "AUTHORIZED",
		"Success": "false",
	}
	const want = "7174553f23b014c9e3b0a9ebe6d60fcb0af8db3cc0c2d49a20b4a993108052b2"

	assert.True(t, VerifyToken(fields, want, "secret"))
	assert.True(t, VerifyToken(fields, "7174553F23B014C9E3B0A9EBE6D60FCB0AF8DB3CC0C2D49A20B4A993108052B2", "secret"))
	assert.False(t, VerifyToken(fields, want, "other"))
	assert.False(t, VerifyToken(fields, "", "secret"))
	assert.False(t, VerifyToken(fields, want, ""))

	fields["Amount"] = "1"
	assert.False(t, VerifyToken(fields, want, "secret"))
}

func TestClientInit_OK(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/Init", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		require.NoError(t, dec.Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Success":true,"ErrorCode":"0","TerminalKey":"term","Status":"NEW",` +
			`"PaymentId":3093639567,"OrderId":"coupon-7","Amount":280000,"PaymentURL":"https://pay.example/new/abc"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/v2/", "term", "pw", time.Second)

	resp, err := c.Init(context.Background(), InitRequest{
		Amount:          280000,
		OrderRef:        "coupon-7",
		Description:     "Покупка 10 обеденных купонов",
		NotificationURL: "https://app.example/api/payment/webhook",
		SuccessURL:      "https://app.example/coupons",
		FailURL:         "https://app.example/coupons",
	})
	require.NoError(t, err)
	assert.Equal(t, "3093639567", string(resp.PaymentID))
	assert.Equal(t, "https://pay.example/new/abc", resp.PaymentURL)
	assert.Equal(t, "NEW", resp.Status)

	assert.Equal(t, json.Number("280000"), got["Amount"])
	assert.Equal(t, "term", got["TerminalKey"])
	assert.Equal(t, "coupon-7", got["OrderId"])
	assert.NotContains(t, got, "CustomerKey")

	signed := map[string]string{
		"TerminalKey":     "term",
		"Amount":          "280000",
		"OrderId":         "coupon-7",
		"Description":     "Покупка 10 обеденных купонов",
		"NotificationURL": "https://app.example/api/payment/webhook",
		"SuccessURL":      "https://app.example/coupons",
		"FailURL":         "https://app.example/coupons",
	}
	assert.Equal(t, Token(signed, "pw"), got["Token"])
}

func TestClientInit_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Success":false,"ErrorCode":"204","Message":"Неверный токен"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "term", "pw", time.Second)

	_, err := c.Init(context.Background(), InitRequest{Amount: 100, OrderRef: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Неверный токен")
}

func TestClientInit_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "term", "pw", time.Second)

	_, err := c.Init(context.Background(), InitRequest{Amount: 100, OrderRef: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClientInit_NotConfigured(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "", "", time.Second)

	_, err := c.Init(context.Background(), InitRequest{Amount: 100, OrderRef: "1"})
	require.Error(t, err)
}
