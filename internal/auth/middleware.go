package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"CatalogStore/pkg/kit"
)

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

// RequireRole rejects requests without a valid bearer token (401) or whose
// token carries a different role (403).
func RequireRole(tm *TokenMaker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := tm.Parse(tok)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			if claims.Role != role {
				kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// AuditLog records which user performed each request that passed RequireRole.
// Requests without claims pass through unlogged.
func AuditLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, ok := ClaimsFromContext(r.Context()); ok {
				log.Info("admin request",
					zap.String("user_id", c.UserID),
					zap.String("email", c.Email),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin chains RequireRole(role) and AuditLog.
func Admin(tm *TokenMaker, role string, log *zap.Logger) func(http.Handler) http.Handler {
	guard := RequireRole(tm, role)
	audit := AuditLog(log)
	return func(next http.Handler) http.Handler {
		return guard(audit(next))
	}
}
