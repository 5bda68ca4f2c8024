package httpx

import (
	"context"

	"github.com/folioworks/folio/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID      ctxKey = "user_id"
	CtxKeyUsername    ctxKey = "username"
	CtxKeySessionID   ctxKey = "session_id"
	CtxKeyPermissions ctxKey = "permissions"
	CtxKeyClaims      ctxKey = "claims" // full jwtx.Claims when needed
)

// UserIDFromCtx returns the authenticated user's ID, or "" when the
// request did not pass authn middleware.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// UsernameFromCtx returns the authenticated username, or "".
func UsernameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUsername).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromCtx returns the login session ID bound to the access
// token, or "".
func SessionIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromCtx returns the verified access-token claims.
func ClaimsFromCtx(ctx context.Context) (jwtx.Claims, bool) {
	v, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return v, ok
}

// HasPermission reports whether the authenticated caller's scope
// carries the given permission code.
func HasPermission(ctx context.Context, code string) bool {
	for _, p := range permissionsFromCtx(ctx) {
		if p == code {
			return true
		}
	}
	return false
}

func permissionsFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyPermissions).([]string); ok {
		return v
	}
	return nil
}
