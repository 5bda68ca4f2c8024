package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// AuthnMiddleware authenticates the request from the httpOnly access
// token cookie, falling back to an Authorization bearer header for
// non-browser callers. Browser sessions never see their tokens; the
// cookie path is the primary one.
func AuthnMiddleware(v jwtx.Verifier, cookies *cookiex.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := cookies.AccessToken(r)
			if raw == "" {
				raw = bearerToken(r)
			}
			if raw == "" {
				writeAuthnError(w, "missing access token")
				return
			}

			claims, err := v.Verify(raw, jwtx.TokenTypeAccess)
			if err != nil {
				log.Warn("access token rejected", "err", err)
				writeAuthnError(w, "token verification failed")
				return
			}

			if err := claims.ValidateExpiry(); err != nil {
				writeAuthnError(w, "token expired")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyUsername, c.Username)
	ctx = context.WithValue(ctx, CtxKeySessionID, c.SID)
	ctx = context.WithValue(ctx, CtxKeyPermissions, c.Permissions())
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

func writeAuthnError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", desc)
}
