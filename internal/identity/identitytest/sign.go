// Package identitytest подписывает initData для тестов так же, как это делает Telegram.
package identitytest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sign вычисляет hash initData: HMAC-SHA256 строки проверки
// на ключе HMAC-SHA256("WebAppData", botToken). Поле hash не участвует.
func Sign(botToken string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmacSHA256([]byte("WebAppData"), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(strings.Join(lines, "\n"))))
}

// InitData собирает подписанную строку initData. Пустой user не добавляется.
func InitData(botToken string, authDate time.Time, user string) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	if user != "" {
		values.Set("user", user)
	}
	values.Set("hash", Sign(botToken, values))
	return values.Encode()
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
