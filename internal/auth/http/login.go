package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/httpx"
	"github.com/folioworks/folio/pkg/slogx"
)

// LoginHandler handles POST /v1/auth/login.
type LoginHandler struct {
	AuthService *service.AuthService
	Cookies     *cookiex.Manager
}

// ServeHTTP runs the password step of authentication.
//
//	@Summary		Log in with username and password
//	@Description	Authenticates the user and sets httpOnly auth cookies. MFA-enabled accounts receive a challenge token instead of cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Session established, or MFA challenge issued"
//	@Failure		401		{object}	authsdk.APIError		"Bad credentials or inactive account"
//	@Failure		403		{object}	authsdk.APIError		"Password change required"
//	@Failure		423		{object}	authsdk.APIError		"Account locked"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	username, password, ok := readCredentials(r)
	if !ok {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.AuthService.Login(ctx, service.LoginInput{
		Username:  username,
		Password:  password,
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var mfaReq *service.MFARequiredError
		if errors.As(err, &mfaReq) {
			httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
				MFARequired:  true,
				SessionToken: mfaReq.SessionToken,
			})
			return
		}
		writeLoginError(w, log, err)
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
		Success:   true,
		CSRFToken: csrf,
		User:      userPayload(result.User, result.Role),
	})
}

// readCredentials accepts JSON or form-encoded bodies.
func readCredentials(r *http.Request) (username, password string, ok bool) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var req authsdk.LoginRequest
		if err := httpx.DecodeJSON(r, &req, 0); err != nil {
			return "", "", false
		}
		username, password = req.Username, req.Password
	} else {
		if err := r.ParseForm(); err != nil {
			return "", "", false
		}
		username = r.PostFormValue("username")
		password = r.PostFormValue("password")
	}
	return username, password, username != "" && password != ""
}

// writeLoginError maps service outcomes onto the wire contract. Bad
// password and unknown user share one response on purpose.
func writeLoginError(w http.ResponseWriter, log *slog.Logger, err error) {
	var locked *service.LockedError
	switch {
	case errors.As(err, &locked):
		authsdk.ErrLocked(locked.Minutes).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrAccountInactive):
		authsdk.ErrAccountInactive.WriteError(w)
	case errors.Is(err, service.ErrPasswordChangeRequired):
		authsdk.ErrPasswordChangeRequired.WriteError(w)
	default:
		log.Error("login failed unexpectedly", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// userPayload sanitizes a user for response bodies. Hashes, secrets,
// and tokens never leave the service.
func userPayload(u domain.User, role domain.Role) *authsdk.UserPayload {
	return &authsdk.UserPayload{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        role.Name,
		Permissions: role.Permissions,
		IsActive:    u.IsActive,
		MFAEnabled:  u.MFAEnabled,
		LastLoginAt: u.LastLoginAt,
	}
}
