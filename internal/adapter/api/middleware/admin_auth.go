package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminAuth is a middleware factory that guards operator routes with a shared
// secret, read from the X-Admin-Key header or the key query parameter.
// An empty password rejects every request.
func AdminAuth(password string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				key = r.URL.Query().Get("key")
			}
			if key == "" {
				logger.Warn("admin key missing from request", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: admin key required", http.StatusUnauthorized)
				return
			}
			if password == "" || subtle.ConstantTimeCompare([]byte(key), []byte(password)) != 1 {
				logger.Warn("invalid admin key provided", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: invalid admin key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
