package router

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/auth"
	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"
	"github.com/IntelliTect/Coalesce-sub010/internal/security"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// withRequestID reuses the caller's X-Request-ID or generates one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("panic_recovered", logger.Fields(r.Context(), map[string]any{
					"panic": fmt.Sprint(p),
					"stack": string(debug.Stack()),
				}))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withAuth puts the caller's principal into the request context. With auth
// disabled every request acts as the trusted principal. A request without
// a token is anonymous; a bad token is rejected. Auth enabled without a
// validator refuses every request.
func withAuth(cfg config.AuthConfig, v *auth.JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !cfg.Enabled {
				next.ServeHTTP(w, r.WithContext(security.WithPrincipal(ctx, security.TrustedPrincipal())))
				return
			}
			if v == nil {
				logger.Error("auth_validator_missing", logger.Fields(ctx, nil))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r.WithContext(security.WithPrincipal(ctx, security.Anonymous())))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			claims, err := v.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.Warn("invalid_token", logger.Fields(ctx, map[string]any{
					"error": err.Error(),
				}))
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			p := auth.PrincipalFromClaims(claims, cfg.JWT.RolesClaim)
			next.ServeHTTP(w, r.WithContext(security.WithPrincipal(ctx, p)))
		})
	}
}
