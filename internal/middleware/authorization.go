package middleware

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

// RequireAdmin gates admin routes on the role claim. It must run after
// AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !slices.Contains(allowedRoles, role) {
				email, _ := GetUserEmail(r.Context())
				logger.Warn("User role not authorized",
					zap.String("role", role),
					zap.String("email", email),
					zap.String("path", r.URL.Path),
					zap.Strings("allowed_roles", allowedRoles),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
