package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/infra/observability"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

type contextKey string

const subjectKey contextKey = "subject"

// JWTAuthMiddleware validates Bearer tokens and injects the subject into context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated subject, or "" when auth is off.
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}

// requestIDForReports copies chi's request id to where the failure reporter reads it.
func requestIDForReports(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observability.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
