package middleware

import (
	"net/http"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/apierr"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/store"
	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
	"github.com/rs/zerolog/log"
)

// RateLimit counts each request against the user's daily bucket via an
// optimistic per-day upsert on the usage store and enforces the cap when
// limit > 0. When the cap trips, the request is answered here and the
// generation core is never invoked.
func RateLimit(s store.UsageStore, limit int, defaultLang models.Lang) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserID(r.Context())
			day := time.Now().UTC().Format("2006-01-02")

			count, err := s.IncrementUsage(r.Context(), user, day)
			if err != nil {
				// Counting must not take the service down.
				log.Warn().Err(err).Str("user", user).Msg("usage increment failed, letting request through")
				next.ServeHTTP(w, r)
				return
			}
			if limit > 0 && count > limit {
				lang := models.ParseLang(r.URL.Query().Get("lang"), defaultLang)
				apierr.WriteFailure(w, http.StatusTooManyRequests, apierr.CodeRateLimited, lang, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
