package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/auth"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// TaskSecretHeader carries the shared secret of task callbacks
const TaskSecretHeader = "X-Task-Secret"

// AuthMiddleware creates a middleware for bearer token authentication
func AuthMiddleware(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || token == "" {
				respondError(w, "Invalid authorization header format")
				return
			}

			accountID, err := verifier.Verify(token)
			if err != nil {
				log.Debug().Err(err).Msg("Token rejected")
				respondError(w, "Invalid token")
				return
			}

			ctx := WithAccountID(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TaskAuth rejects task callbacks that do not carry the shared secret
func TaskAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TaskSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				respondError(w, "Invalid task secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAccountID stores the authenticated account in ctx
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// GetAccountID extracts the authenticated account ID from context
func GetAccountID(ctx context.Context) string {
	accountID, ok := ctx.Value(accountIDKey).(string)
	if !ok {
		return ""
	}
	return accountID
}

// respondError sends an unauthenticated error response
func respondError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    string(apperr.KindUnauthenticated),
			"message": message,
		},
	})
}
