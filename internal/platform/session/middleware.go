// Package session issues and propagates the anonymous storefront session
// cookie that scopes carts.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/marugo-kitchen/api/internal/platform/requestctx"
)

const defaultCookieName = "mk_session"

// Config controls cookie naming and lifetime.
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Middleware ensures every request carries a session identifier. A missing or
// malformed cookie is replaced with a fresh ULID; the identifier is stored on
// the request context for handlers and logging.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(cookieName); err == nil {
				sessionID = normalize(cookie.Value)
			}
			if sessionID == "" {
				sessionID = ulid.Make().String()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(ttl / time.Second),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := requestctx.WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromRequest returns the session identifier bound to the request, if any.
func FromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return requestctx.SessionID(r.Context())
}

// normalize rejects values that cannot be a ULID so a tampered cookie never
// becomes a cart key.
func normalize(value string) string {
	value = strings.TrimSpace(value)
	if len(value) != ulid.EncodedSize {
		return ""
	}
	if _, err := ulid.ParseStrict(strings.ToUpper(value)); err != nil {
		return ""
	}
	return strings.ToUpper(value)
}
