package auth

import (
	"net/http"
	"strings"
	"time"
)

// AccessTokenCookie is the name of the session cookie.
const AccessTokenCookie = "access_token"

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// ParseSameSite maps "strict" to http.SameSiteStrictMode and anything else to lax.
func ParseSameSite(value string) http.SameSite {
	if strings.EqualFold(strings.TrimSpace(value), "strict") {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// CookieHelper manages the session cookie.
type CookieHelper struct {
	config CookieConfig
}

// NewCookieHelper creates a new cookie helper with the given configuration.
func NewCookieHelper(config CookieConfig) *CookieHelper {
	if config.Path == "" {
		config.Path = "/"
	}
	if config.SameSite == 0 {
		config.SameSite = http.SameSiteLaxMode
	}
	return &CookieHelper{config: config}
}

// SetSessionCookie writes the session cookie. A zero maxAge produces a
// browser-session cookie; a positive one persists for that long.
func (h *CookieHelper) SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	h.setCookie(w, token, int(maxAge.Seconds()))
}

// ClearSessionCookie expires the session cookie immediately.
func (h *CookieHelper) ClearSessionCookie(w http.ResponseWriter) {
	h.setCookie(w, "", -1)
}

func (h *CookieHelper) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    value,
		Path:     h.config.Path,
		MaxAge:   maxAge,
		Secure:   h.config.Secure,
		HttpOnly: true,
		SameSite: h.config.SameSite,
	})
}
