package security

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
	CSRFCookieName    = "csrf_token"

	// The refresh cookie is scoped to the auth subtree so it never rides
	// along on ordinary API calls.
	refreshCookiePath = "/api/v1/auth"
)

type CookieManager struct {
	Domain    string
	Secure    bool
	SameSite  http.SameSite
	AccessTTL time.Duration
}

func NewCookieManager(domain string, secure bool, sameSite string, accessTTL time.Duration) *CookieManager {
	mode := http.SameSiteLaxMode
	switch sameSite {
	case "strict":
		mode = http.SameSiteStrictMode
	case "none":
		mode = http.SameSiteNoneMode
	}
	return &CookieManager{Domain: domain, Secure: secure, SameSite: mode, AccessTTL: accessTTL}
}

// SetTokenCookies writes the access, refresh and CSRF cookies. The CSRF
// cookie is readable by scripts so the SPA can echo it in a header.
func (m *CookieManager) SetTokenCookies(w http.ResponseWriter, access, refresh, csrf string, refreshTTL time.Duration) {
	http.SetCookie(w, m.cookie(AccessCookieName, access, "/", true, int(m.AccessTTL.Seconds())))
	http.SetCookie(w, m.cookie(RefreshCookieName, refresh, refreshCookiePath, true, int(refreshTTL.Seconds())))
	http.SetCookie(w, m.cookie(CSRFCookieName, csrf, "/", false, int(refreshTTL.Seconds())))
}

func (m *CookieManager) ClearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(AccessCookieName, "", "/", true, -1))
	http.SetCookie(w, m.cookie(RefreshCookieName, "", refreshCookiePath, true, -1))
	http.SetCookie(w, m.cookie(CSRFCookieName, "", "/", false, -1))
}

func (m *CookieManager) cookie(name, value, path string, httpOnly bool, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   m.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	}
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
