package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

const (
	tokenField    = "Token"
	passwordField = "Password"
)

// Token вычисляет подпись T-Bank: SHA-256 от значений полей, упорядоченных по имени поля,
// вместе с паролем терминала в поле Password.
func Token(fields map[string]string, password string) string {
	all := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		if k == tokenField {
			continue
		}
		all[k] = v
	}
	all[passwordField] = password

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(all[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyToken сравнивает переданную подпись с ожидаемой за постоянное время.
func VerifyToken(fields map[string]string, token, password string) bool {
	if token == "" || password == "" {
		return false
	}
	expected := Token(fields, password)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(token))) == 1
}
