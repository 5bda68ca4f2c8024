package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyPermission passes the request through when the caller holds
// at least one of the listed permission codes.
func RequireAnyPermission(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, p := range required {
		want[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range permissionsFromCtx(r.Context()) {
				if _, ok := want[p]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			writePermissionError(w, required...)
		})
	}
}

// RequireAllPermissions passes the request through only when the caller
// holds every listed permission code.
func RequireAllPermissions(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := make(map[string]struct{})
			for _, p := range permissionsFromCtx(r.Context()) {
				have[p] = struct{}{}
			}
			for _, p := range required {
				if _, ok := have[p]; !ok {
					writePermissionError(w, required...)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writePermissionError(w http.ResponseWriter, required ...string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteError(w, http.StatusForbidden, "insufficient_permissions",
		"caller lacks the required permission")
}
