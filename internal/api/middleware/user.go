package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey is the context key for the caller's user identifier.
const UserIDKey contextKey = "user_id"

// AnonymousUser is the bucket unidentified callers share for usage limiting.
const AnonymousUser = "anonymous"

// UserExtractor resolves the caller identity used for usage counting and
// history. It checks the X-User-Id header, then the user_id query
// parameter, and falls back to the anonymous bucket.
func UserExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := ""

		if h := r.Header.Get("X-User-Id"); h != "" {
			user = strings.TrimSpace(h)
		}
		if user == "" {
			if q := r.URL.Query().Get("user_id"); q != "" {
				user = strings.TrimSpace(q)
			}
		}
		if user == "" {
			user = AnonymousUser
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID retrieves the caller identity from the request context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return AnonymousUser
}
