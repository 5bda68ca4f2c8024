package http

import (
	"net/http"

	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/httpx"
)

// LogoutHandler handles POST /v1/auth/logout.
type LogoutHandler struct {
	AuthService *service.AuthService
	Cookies     *cookiex.Manager
}

// ServeHTTP ends the session. Clearing cookies is unconditional; no
// state of the access token cookie can make logout fail.
//
//	@Summary		Log out
//	@Description	Revokes the session's refresh tokens and clears all auth cookies. Always succeeds.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutResponse	"Logged out"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.AuthService.Logout(r.Context(), h.Cookies.AccessToken(r))

	h.Cookies.ClearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		Success: true,
		Message: "logged out",
	})
}
