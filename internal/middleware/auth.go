package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"livepoll/internal/domain"
	"livepoll/internal/service"
	"livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// AdminContextKey is the key for the admin token claims in context
	AdminContextKey ContextKey = "admin"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// AdminAuth rejects requests without a valid admin bearer token
func AdminAuth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Token is required"), logger)
				return
			}

			ctx := r.Context()
			claims, err := authService.Authorize(ctx, token)
			if err != nil {
				if stderrors.Is(err, domain.ErrNotAuthenticated) {
					writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid or expired token"), logger)
					return
				}
				if stderrors.Is(err, domain.ErrNotAdmin) {
					writeErrorResponse(w, r, errors.NewAuthorizationError("Admin access required"), logger)
					return
				}
				writeErrorResponse(w, r, errors.NewInternalError("Failed to verify admin session", err), logger)
				return
			}

			ctx = context.WithValue(ctx, AdminContextKey, claims)
			logger.WithField("admin", claims.Email).Debug("Admin authenticated")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext returns the claims stored by AdminAuth
func AdminFromContext(ctx context.Context) (*domain.AuthClaims, bool) {
	claims, ok := ctx.Value(AdminContextKey).(*domain.AuthClaims)
	return claims, ok
}

// RequestID adds a unique request ID to each request, reusing an incoming X-Request-ID
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithError(appErr).WithField("path", r.URL.Path).Warn("Request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(errors.NewErrorResponse(appErr, GetRequestID(r.Context())))
}
