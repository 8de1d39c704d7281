package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/therapy-console/internal/auth"
	"github.com/hongminglow/therapy-console/internal/http/respond"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Claims, error)
}

type claimsKey struct{}

// RequireAuth rejects requests without a valid bearer token and stores the claims in the context.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "token expired or invalid")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}
