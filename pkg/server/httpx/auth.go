package httpx

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
)

// Auth returns a middleware that resolves the caller's identity and stores
// it in the request context.
//
// Behavior:
//   - Skips authentication for health endpoints (/healthz, /readyz)
//   - With authentication disabled, every caller is auth.Anonymous
//   - Otherwise reads Authorization: Bearer <token>, falling back to the
//     ?token= query parameter (browsers cannot set headers on WebSocket upgrades)
//   - Returns 401 Unauthorized with a JSON error if the token is missing or unknown
func Auth(table *auth.Table) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !table.Enabled() {
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), auth.Anonymous)))
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			if token == "" {
				log.Warn().
					Str("component", "auth").
					Str("path", r.URL.Path).
					Msg("Missing credentials")
				writeUnauthorized(w, "Missing authorization header")
				return
			}

			id, ok := table.Lookup(token)
			if !ok {
				log.Warn().
					Str("component", "auth").
					Str("path", r.URL.Path).
					Msg("Invalid token")
				writeUnauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// isHealthEndpoint checks if path is a health check endpoint
func isHealthEndpoint(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// extractBearerToken extracts the token from Authorization: Bearer <token> header
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	api.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized", message)
}
