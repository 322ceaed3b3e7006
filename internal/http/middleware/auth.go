package middleware

import (
	"log/slog"
	"net/http"
)

// AdminAuth protects destructive routes (recipe deletion) with a static
// bearer key sourced from configuration
type AdminAuth struct {
	apiKey string
	logger *slog.Logger
}

// NewAdminAuth creates the admin middleware. An empty key disables the check,
// which is only acceptable for local development.
func NewAdminAuth(apiKey string, logger *slog.Logger) *AdminAuth {
	if apiKey == "" {
		logger.Warn("No admin API key configured - recipe deletion is unprotected")
	}

	return &AdminAuth{
		apiKey: apiKey,
		logger: logger,
	}
}

// Middleware returns the authentication middleware handler
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			a.logger.Debug("Admin auth bypassed - no API key configured")
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.logger.Warn("Admin request rejected - missing Authorization header",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, "Unauthorized - missing Authorization header", http.StatusUnauthorized)
			return
		}

		if authHeader != "Bearer "+a.apiKey {
			a.logger.Warn("Admin request rejected - invalid API key",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, "Unauthorized - invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
