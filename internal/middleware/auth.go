package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

const bearerPrefix = "Bearer "

// BearerAuth enforces the static API token on every request it wraps.
// A missing or malformed Authorization header is rejected with 401; a
// well-formed header carrying the wrong token is rejected with 403. No
// transcription work starts before this check passes.
func BearerAuth(apiToken string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, bearerPrefix) {
			logger.Warn(r.Context(), "rejected request with invalid authorization header", nil, logger.Fields{
				"path": r.URL.Path,
			})
			writeAuthError(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authz, bearerPrefix))
		if token != apiToken {
			logger.Warn(r.Context(), "rejected request with invalid API token", nil, logger.Fields{
				"path": r.URL.Path,
			})
			writeAuthError(w, http.StatusForbidden, "Invalid API token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
