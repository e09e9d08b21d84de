package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/clouddoctor/server/internal/domain"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookiePolicy decides how session cookies are issued. Browsers only accept
// SameSite=None cookies over HTTPS, so local development (the frontend dev
// server on localhost) gets Lax non-secure cookies instead, plus the tokens
// echoed in the response body since cross-port cookies are unreliable there.
type CookiePolicy struct {
	Secure bool   // production default; overridden off for localhost origins
	Domain string // cookie domain in production, empty for host-only
}

// localOrigin reports whether the request came from a localhost frontend.
func localOrigin(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Origin"), "localhost")
}

func (p CookiePolicy) cookie(r *http.Request, name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(ttl / time.Second),
	}
	if localOrigin(r) || !p.Secure {
		c.SameSite = http.SameSiteLaxMode
		return c
	}
	c.SameSite = http.SameSiteNoneMode
	c.Secure = true
	c.Domain = p.Domain
	return c
}

// setSessionCookies attaches both token cookies to the response.
func (p CookiePolicy) setSessionCookies(
	w http.ResponseWriter,
	r *http.Request,
	pair domain.TokenPair,
	accessTTL, refreshTTL time.Duration,
) {
	http.SetCookie(w, p.cookie(r, accessTokenCookie, pair.AccessToken, accessTTL))
	http.SetCookie(w, p.cookie(r, refreshTokenCookie, pair.RefreshToken, refreshTTL))
}

// clearSessionCookies reissues both cookies with Max-Age=0 so the browser
// drops them.
func (p CookiePolicy) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c := p.cookie(r, name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}
