// Package cookiex binds the auth service's tokens to browser cookies.
//
// Access and refresh tokens live in httpOnly cookies so page script can
// never read them; they consequently never appear in JSON response
// bodies. The CSRF token is the one session-bound secret deliberately
// exposed to script (in a non-httpOnly cookie and in the response
// body), because it is useless without the httpOnly cookies it
// accompanies.
package cookiex

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/folioworks/folio/pkg/cryptox"
)

// Cookie names. DeviceCookie is an auxiliary long-lived fingerprint
// used by the suspicious-login heuristics, not an authorization input.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	CSRFCookie    = "csrf_token"
	DeviceCookie  = "device_id"
)

const deviceCookieTTL = 365 * 24 * time.Hour

// Manager writes and reads the auth cookie set. The zero value is not
// usable; construct with New.
type Manager struct {
	path     string
	domain   string
	secure   bool
	sameSite http.SameSite
}

type Options struct {
	// Path scopes the auth cookies to the API prefix (e.g. "/v1").
	Path string
	// Domain is optional; empty means host-only cookies.
	Domain string
	// Secure should be true everywhere except local development over
	// plain HTTP.
	Secure bool
	// SameSite defaults to Lax when unset.
	SameSite http.SameSite
}

func New(opts Options) *Manager {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &Manager{
		path:     opts.Path,
		domain:   opts.Domain,
		secure:   opts.Secure,
		sameSite: opts.SameSite,
	}
}

// SetAuthCookies writes the access and refresh token cookies plus a
// fresh CSRF cookie, and returns the CSRF value for inclusion in the
// response body. The device fingerprint cookie is set only when the
// request doesn't already carry one.
func (m *Manager) SetAuthCookies(
	w http.ResponseWriter,
	r *http.Request,
	accessToken, refreshToken string,
	accessTTL, refreshTTL time.Duration,
) (string, error) {
	m.setCookie(w, AccessCookie, accessToken, accessTTL, true)
	m.setCookie(w, RefreshCookie, refreshToken, refreshTTL, true)

	csrf, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}
	// CSRF cookie lifetime follows the access token.
	m.setCookie(w, CSRFCookie, csrf, accessTTL, false)

	if _, err := r.Cookie(DeviceCookie); err != nil {
		m.setCookie(w, DeviceCookie, uuid.NewString(), deviceCookieTTL, true)
	}

	return csrf, nil
}

// AccessToken reads the access token cookie, returning "" when absent.
func (m *Manager) AccessToken(r *http.Request) string {
	return cookieValue(r, AccessCookie)
}

// RefreshToken reads the refresh token cookie, returning "" when absent.
func (m *Manager) RefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookie)
}

// CSRFToken reads the CSRF cookie, returning "" when absent.
func (m *Manager) CSRFToken(r *http.Request) string {
	return cookieValue(r, CSRFCookie)
}

// DeviceID reads the device fingerprint cookie, returning "" when absent.
func (m *Manager) DeviceID(r *http.Request) string {
	return cookieValue(r, DeviceCookie)
}

// ClearAuthCookies expires every auth-related cookie, whether or not it
// was present on the request. Logout depends on it never being skipped.
func (m *Manager) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie, CSRFCookie, DeviceCookie} {
		httpOnly := name != CSRFCookie
		c := m.newCookie(name, "", -time.Hour, httpOnly)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// GenerateCSRFToken mints a fresh unpredictable CSRF value.
func GenerateCSRFToken() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize128)
}

// SetCSRFCookie writes a CSRF cookie independent of a full login, to
// support rotating CSRF tokens without re-authenticating.
func (m *Manager) SetCSRFCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	m.setCookie(w, CSRFCookie, token, ttl, false)
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	http.SetCookie(w, m.newCookie(name, value, ttl, httpOnly))
}

func (m *Manager) newCookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   m.secure,
		HttpOnly: httpOnly,
		SameSite: m.sameSite,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
