package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type ctxKey int

const claimsKey ctxKey = iota

// TokenValidator turns a bearer token into the caller's claims.
type TokenValidator interface {
	ValidateAccessToken(token string) (*entity.JWTClaims, error)
}

// Auth rejects requests without a valid "Authorization: Bearer <token>" header
// and stores the caller's claims in the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

// UserID returns the authenticated caller's id, or false outside Auth.
func UserID(ctx context.Context) (int, bool) {
	claims, ok := ctx.Value(claimsKey).(*entity.JWTClaims)
	if !ok || claims == nil {
		return 0, false
	}
	return claims.UserID, true
}

// WithUserID is used by tests that bypass Auth.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, claimsKey, &entity.JWTClaims{UserID: userID})
}
