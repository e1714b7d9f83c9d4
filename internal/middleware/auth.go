package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dict-gateway/go/internal/constants"
	"github.com/dict-gateway/go/internal/dict"
	"github.com/dict-gateway/go/internal/httputil"
)

// JWTClaims represents the claims in the JWT token
type JWTClaims struct {
	TenantID            string `json:"tenant_id"`
	ParticipantCode     string `json:"participant_code"`
	ParticipantCategory string `json:"participant_category"`
	jwt.RegisteredClaims
}

type callerContextKey struct{}

// CallerFromContext returns the authenticated caller set by AuthMiddleware.
func CallerFromContext(ctx context.Context) (dict.Caller, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(dict.Caller)
	return caller, ok
}

// WithCaller stores the caller on the context, for tests and internal wiring.
func WithCaller(ctx context.Context, caller dict.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// AuthMiddleware validates JWT tokens and puts the tenant identity on the
// request context for downstream handlers.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := r.Header.Get("Authorization")

			if authorization == "" {
				httputil.WriteAPIError(w, r, constants.ErrAuthHeaderRequired)
				return
			}

			tokenString := strings.TrimPrefix(authorization, "Bearer ")

			token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				httputil.WriteAPIError(w, r, constants.ErrInvalidToken)
				return
			}

			claims, ok := token.Claims.(*JWTClaims)
			if !ok || claims.TenantID == "" {
				httputil.WriteAPIError(w, r, constants.ErrInvalidTokenClaims)
				return
			}

			caller := dict.Caller{
				TenantID:            claims.TenantID,
				ParticipantCategory: dict.ParticipantCategory(claims.ParticipantCategory),
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
