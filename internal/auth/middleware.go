package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/rtnews/backend/internal/config"
	"github.com/rtnews/backend/internal/errresponse"
)

type ctxKey int

const claimsKey ctxKey = iota

// Verifier gates a route behind a bearer token. Valid claims are put
// on the request context for downstream handlers.
func Verifier(cfg config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				_ = render.Render(w, r, errresponse.ErrUnauthorized("No token provided"))

				return
			}

			claims, err := ParseToken(cfg, token)
			if err != nil {
				_ = render.Render(w, r, errresponse.ErrUnauthorized("Invalid token"))

				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims placed by Verifier, or nil on
// an unauthenticated request.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)

	return claims
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
