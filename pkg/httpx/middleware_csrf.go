package httpx

import (
	"net/http"

	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/slogx"
)

// CSRFHeader is the request header the client must echo the CSRF
// cookie value into on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware enforces double-submit CSRF protection on mutating
// methods. Safe methods pass through untouched. The comparison is
// constant-time so the check leaks nothing about the cookie value.
func CSRFMiddleware(cookies *cookiex.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cookie := cookies.CSRFToken(r)
			header := r.Header.Get(CSRFHeader)

			if cookie == "" || header == "" || !cryptox.ConstantTimeEquals(cookie, header) {
				slogx.FromContext(r.Context()).Warn("csrf check failed",
					"path", r.URL.Path,
					"have_cookie", cookie != "",
					"have_header", header != "",
				)
				WriteError(w, http.StatusForbidden, "csrf_mismatch",
					"missing or invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
