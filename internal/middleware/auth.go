// Package middleware содержит HTTP middleware сервиса lunchbox.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/identity"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/response"
)

type contextKey string

const userKey contextKey = "user"

const authScheme = "tma "

// PrincipalParser проверяет initData клиента.
type PrincipalParser interface {
	Parse(initData string) (identity.Principal, error)
}

// UserResolver находит или создаёт пользователя по проверенному principal.
type UserResolver interface {
	Resolve(ctx context.Context, p identity.Principal) (*model.User, error)
}

// AuthMiddleware проверяет заголовок Authorization: tma <initData>.
type AuthMiddleware struct {
	parser   PrincipalParser
	resolver UserResolver
	logger   *zap.Logger
}

// NewAuthMiddleware создаёт middleware аутентификации.
func NewAuthMiddleware(parser PrincipalParser, resolver UserResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		parser:   parser,
		resolver: resolver,
		logger:   logger,
	}
}

// Middleware проверяет initData, сохраняет пользователя и кладёт его в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		initData, found := strings.CutPrefix(header, authScheme)
		if !found {
			response.Error(w, a.logger, apperr.New(apperr.KindUnauthorized, "missing tma authorization"))
			return
		}

		p, err := a.parser.Parse(initData)
		if err != nil {
			a.logger.Debug("init data rejected", zap.Error(err))
			response.Error(w, a.logger, apperr.Wrap(apperr.KindUnauthorized, err, "invalid init data"))
			return
		}

		user, err := a.resolver.Resolve(r.Context(), p)
		if err != nil {
			response.Error(w, a.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser возвращает контекст с пользователем.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// GetUserFromContext извлекает пользователя из контекста запроса.
func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// RequireRole пропускает пользователей с одной из ролей. Администратор проходит всегда.
func RequireRole(logger *zap.Logger, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := GetUserFromContext(r.Context())
			if !ok {
				response.Error(w, logger, apperr.New(apperr.KindUnauthorized, ""))
				return
			}
			if !u.IsAdmin() && !hasRole(u.Role, roles) {
				response.Error(w, logger, apperr.New(apperr.KindForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBearer пропускает запросы с заголовком Authorization: Bearer <secret>.
// С пустым секретом маршрут закрыт.
func RequireBearer(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	want := []byte("Bearer " + secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if secret == "" || subtle.ConstantTimeCompare(got, want) != 1 {
				response.Error(w, logger, apperr.New(apperr.KindUnauthorized, ""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role model.Role, roles []model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
