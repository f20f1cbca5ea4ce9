package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/identity"
	"github.com/mmeshcher/lunchbox/internal/identity/identitytest"
	"github.com/mmeshcher/lunchbox/internal/model"
)

const testBotToken = "123:ABC"

type stubResolver struct {
	role model.Role
	err  error
	got  identity.Principal
}

func (s *stubResolver) Resolve(_ context.Context, p identity.Principal) (*model.User, error) {
	s.got = p
	if s.err != nil {
		return nil, s.err
	}
	return &model.User{ID: 42, TelegramID: p.TelegramID, FirstName: p.FirstName, Role: s.role}, nil
}

func signedInitData(botToken string) string {
	return identitytest.InitData(botToken, time.Now(), `{"id":777,"first_name":"Иван","username":"ivan"}`)
}

func TestAuthMiddleware_ValidInitData(t *testing.T) {
	resolver := &stubResolver{role: model.RoleCustomer}
	m := NewAuthMiddleware(identity.NewValidator(testBotToken, false), resolver, zap.NewNop())

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		u, ok := GetUserFromContext(r.Context())
		if !ok {
			t.Fatalf("user not in context")
		}
		if u.ID != 42 {
			t.Fatalf("user id from context = %d, want 42", u.ID)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.Header.Set("Authorization", "tma "+signedInitData(testBotToken))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
	if resolver.got.TelegramID != 777 || resolver.got.Username != "ivan" {
		t.Fatalf("unexpected principal: %+v", resolver.got)
	}
}

func TestAuthMiddleware_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Bearer abc"},
		{name: "foreign bot", header: "tma " + signedInitData("999:XYZ")},
		{name: "garbage", header: "tma %zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(identity.NewValidator(testBotToken, false), &stubResolver{}, zap.NewNop())
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_DevMode(t *testing.T) {
	resolver := &stubResolver{role: model.RoleCustomer}
	m := NewAuthMiddleware(identity.NewValidator("dev", true), resolver, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.Header.Set("Authorization", "tma ")

	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if resolver.got != identity.DevPrincipal {
		t.Fatalf("principal = %+v, want dev principal", resolver.got)
	}
}

func TestAuthMiddleware_ResolverError(t *testing.T) {
	m := NewAuthMiddleware(identity.NewValidator(testBotToken, false), &stubResolver{err: errors.New("db down")}, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.Header.Set("Authorization", "tma "+signedInitData(testBotToken))

	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{name: "courier", user: &model.User{Role: model.RoleDelivery}, want: http.StatusOK},
		{name: "admin always passes", user: &model.User{Role: model.RoleAdmin}, want: http.StatusOK},
		{name: "customer", user: &model.User{Role: model.RoleCustomer}, want: http.StatusForbidden},
		{name: "anonymous", user: nil, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireRole(zap.NewNop(), model.RoleDelivery)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			r := httptest.NewRequest(http.MethodGet, "/api/delivery/orders", nil)
			if tt.user != nil {
				r = r.WithContext(WithUser(r.Context(), tt.user))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireBearer(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "matching secret", secret: "s3cret", header: "Bearer s3cret", want: http.StatusOK},
		{name: "wrong secret", secret: "s3cret", header: "Bearer other", want: http.StatusUnauthorized},
		{name: "no header", secret: "s3cret", header: "", want: http.StatusUnauthorized},
		{name: "secret without scheme", secret: "s3cret", header: "s3cret", want: http.StatusUnauthorized},
		{name: "empty secret closes route", secret: "", header: "Bearer ", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireBearer(tt.secret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			r := httptest.NewRequest(http.MethodGet, "/api/cron/daily-menu", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get("X-Request-ID") != seen {
		t.Fatalf("generated id = %q, header = %q", seen, w.Header().Get("X-Request-ID"))
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "abc-123" {
		t.Fatalf("request id = %q, want abc-123", seen)
	}
}
