package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// PrincipalResolver превращает bearer-токен в принципала запроса.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (domain.Principal, error)
}

// StaticTokenResolver — резолвер по статической таблице токенов
// (локальная разработка и тесты; в бою заменяется внешним провайдером).
type StaticTokenResolver struct {
	tokens map[string]domain.Principal
}

// NewStaticTokenResolver создаёт резолвер из таблицы token -> principal.
func NewStaticTokenResolver(tokens map[string]domain.Principal) *StaticTokenResolver {
	cloned := make(map[string]domain.Principal, len(tokens))
	for token, principal := range tokens {
		cloned[token] = principal
	}
	return &StaticTokenResolver{tokens: cloned}
}

func (r *StaticTokenResolver) Resolve(_ context.Context, token string) (domain.Principal, error) {
	principal, ok := r.tokens[token]
	if !ok {
		return domain.Principal{}, errUnauthorized
	}
	return principal, nil
}

type principalContextKey struct{}

// principalFrom извлекает принципала, положенного auth-middleware.
func principalFrom(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(domain.Principal)
	return principal, ok
}

// requireAuth извлекает bearer-токен, резолвит принципала и кладёт его
// в контекст запроса. Запросы без валидного токена получают 401.
func requireAuth(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, nil, errUnauthorized)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				respondError(w, nil, errUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
