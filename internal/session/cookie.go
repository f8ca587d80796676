package session

import (
	"net/http"
)

// CookieName is the superadmin session cookie.
const CookieName = "sa_session"

// CookieManager attaches and clears the session cookie. Neither operation can fail.
type CookieManager struct {
	// Secure marks the cookie HTTPS-only; enabled in production.
	Secure bool
}

// Issue attaches the signed session token. No Max-Age is set so the cookie lives for the browser session;
// the token's own expiry bounds server-side validity.
func (m CookieManager) Issue(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(token, 0))
}

// Clear attaches an empty cookie with Max-Age=0 so the client drops it immediately.
func (m CookieManager) Clear(w http.ResponseWriter) {
	// net/http renders a negative MaxAge as "Max-Age=0"
	http.SetCookie(w, m.cookie("", -1))
}

// Token returns the session token from the request, or ErrNoSession.
func (m CookieManager) Token(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}
	return cookie.Value, nil
}

func (m CookieManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
