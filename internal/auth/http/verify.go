package http

import (
	"net/http"

	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/httpx"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// VerifyHandler handles GET /v1/auth/verify.
type VerifyHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP reports who the verified access token belongs to.
//
//	@Summary		Verify the current session
//	@Description	Returns the authenticated user's identity. Requires a valid access token cookie or bearer token.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.VerifyResponse	"Session is valid"
//	@Failure		401	{object}	authsdk.APIError		"Missing or invalid access token"
//	@Router			/v1/auth/verify [get].
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, _, err := h.AuthService.Verify(ctx, httpx.UsernameFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Warn("verify failed to load user", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{
		Valid:    true,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	})
}

// CSRFTokenHandler handles GET /v1/auth/csrf-token.
type CSRFTokenHandler struct {
	Cookies *cookiex.Manager
}

// ServeHTTP rotates the CSRF token without touching the auth cookies.
//
//	@Summary		Mint a fresh CSRF token
//	@Description	Issues a new CSRF cookie and returns its value, without re-authenticating.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.CSRFTokenResponse	"Fresh CSRF token"
//	@Failure		401	{object}	authsdk.APIError			"Missing or invalid access token"
//	@Router			/v1/auth/csrf-token [get].
func (h *CSRFTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := cookiex.GenerateCSRFToken()
	if err != nil {
		slogx.FromContext(r.Context()).Error("csrf token generation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	h.Cookies.SetCSRFCookie(w, token, jwtx.DefaultAccessTokenTTL)

	httpx.WriteJSON(w, http.StatusOK, authsdk.CSRFTokenResponse{
		CSRFToken: token,
		Message:   "csrf token refreshed",
	})
}

// WebsiteEditTokenHandler handles POST /v1/auth/website-token.
type WebsiteEditTokenHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP mints a short-lived token for the public-site edit flow.
//
//	@Summary		Issue a website edit token
//	@Description	Mints a 15-minute token scoped to website:edit for the public-site origin. Requires the website:edit permission.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.WebsiteEditTokenResponse	"Short-lived edit token"
//	@Failure		401	{object}	authsdk.APIError					"Missing or invalid access token"
//	@Failure		403	{object}	authsdk.APIError					"Caller lacks website:edit"
//	@Router			/v1/auth/website-token [post].
func (h *WebsiteEditTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ttl, err := h.AuthService.IssueWebsiteEditToken(ctx, httpx.UsernameFromCtx(ctx))
	if err != nil {
		if err == service.ErrPermissionDenied || err == service.ErrAccountInactive {
			authsdk.ErrPermissionDenied.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("website edit token mint failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.WebsiteEditTokenResponse{
		Token:     token,
		ExpiresIn: int(ttl.Seconds()),
	})
}
