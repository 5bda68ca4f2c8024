package http

import (
	"errors"
	"net/http"

	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/httpx"
	"github.com/folioworks/folio/pkg/slogx"
)

// MFAVerifyLoginHandler handles POST /v1/auth/mfa/verify-login.
type MFAVerifyLoginHandler struct {
	AuthService *service.AuthService
	Cookies     *cookiex.Manager
}

// ServeHTTP completes an MFA-gated login.
//
//	@Summary		Complete an MFA-gated login
//	@Description	Exchanges the challenge token plus a TOTP or backup code for a cookie session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAVerifyLoginRequest	true	"Challenge token and code"
//	@Success		200		{object}	authsdk.LoginResponse			"Session established"
//	@Failure		400		{object}	authsdk.APIError				"Malformed request"
//	@Failure		401		{object}	authsdk.APIError				"Invalid session or code"
//	@Router			/v1/auth/mfa/verify-login [post].
func (h *MFAVerifyLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.MFAVerifyLoginRequest
	if err := httpx.DecodeJSON(r, &req, 0); err != nil ||
		req.SessionToken == "" || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.AuthService.VerifyMFALogin(
		ctx, req.SessionToken, req.Code, httpx.IPKeyExtractor(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMFASessionInvalid):
			authsdk.ErrInvalidMFASession.WriteError(w)
		case errors.Is(err, service.ErrInvalidMFACode):
			authsdk.ErrInvalidMFACode.WriteError(w)
		case errors.Is(err, service.ErrTooManyAttempts):
			authsdk.ErrTooManyMFAAttempts.WriteError(w)
		default:
			log.Error("MFA verify-login failed unexpectedly", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	csrf, err := h.Cookies.SetAuthCookies(w, r,
		result.Tokens.AccessToken, result.Tokens.RefreshToken,
		result.Tokens.AccessExpiresIn, result.Tokens.RefreshExpiresIn)
	if err != nil {
		log.Error("failed to set auth cookies", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Success:              true,
		CSRFToken:            csrf,
		User:                 userPayload(result.User, result.Role),
		BackupCodeUsed:       result.BackupCodeUsed,
		BackupCodesRemaining: result.BackupCodesRemaining,
	})
}
