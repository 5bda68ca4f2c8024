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

// RefreshHandler handles POST /v1/auth/refresh-token.
type RefreshHandler struct {
	AuthService *service.AuthService
	Cookies     *cookiex.Manager
}

// ServeHTTP rotates the token pair. The refresh token is read from its
// cookie only, never from the body.
//
//	@Summary		Rotate the token pair
//	@Description	Exchanges the refresh cookie for fresh access and refresh cookies plus a new CSRF token.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.RefreshResponse	"Cookies rotated"
//	@Failure		400	{object}	authsdk.APIError		"Refresh cookie missing"
//	@Failure		401	{object}	authsdk.APIError		"Invalid or expired refresh token"
//	@Router			/v1/auth/refresh-token [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refreshToken := h.Cookies.RefreshToken(r)
	if refreshToken == "" {
		authsdk.ErrMissingRefreshToken.WriteError(w)
		return
	}

	result, err := h.AuthService.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			authsdk.ErrInvalidRefreshToken.WriteError(w)
			return
		}
		log.Error("refresh failed unexpectedly", "err", err)
		authsdk.ErrServerError.WriteError(w)
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

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Success:   true,
		CSRFToken: csrf,
	})
}
