package http

import (
	"net/http"
	"time"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
)

// Session cookie names.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieConfig controls the attributes of the session cookies. HttpOnly is
// always set.
type CookieConfig struct {
	Secure   bool
	Domain   string
	SameSite http.SameSite
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return c.SameSite
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	}
	if !expires.IsZero() {
		cookie.Expires = expires
		if ttl := time.Until(expires); ttl > time.Second {
			cookie.MaxAge = int(ttl.Seconds())
		}
	}
	return cookie
}

// setSession writes both session cookies. Each expires with its token.
func (c CookieConfig) setSession(w http.ResponseWriter, pair *domain.SessionPair) {
	http.SetCookie(w, c.cookie(AccessCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, c.cookie(RefreshCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

// clearSession expires both session cookies.
func (c CookieConfig) clearSession(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		cookie := c.cookie(name, "", time.Time{})
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(w, cookie)
	}
}
