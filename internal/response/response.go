// Package response пишет JSON-ответы API и отображает ошибки в HTTP.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/apperr"
)

// ErrorBody описывает тело ответа с ошибкой.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload содержит код, сообщение и детали ошибки.
type ErrorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON пишет значение v с указанным статусом.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error пишет ошибку в формате API. Ошибки без вида отдаются как внутренние,
// их текст клиенту не показывается.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.KindInternal, err, "")
	}

	status := apperr.HTTPStatus(e.Kind)
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("code", string(e.Kind)), zap.Error(err))
		} else {
			logger.Debug("request rejected", zap.String("code", string(e.Kind)), zap.Error(err))
		}
	}

	payload := ErrorPayload{Code: string(e.Kind), Message: e.Message}
	if status < http.StatusInternalServerError {
		payload.Details = e.Details
	}
	JSON(w, status, ErrorBody{Error: payload})
}
