package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/httpx"
	"github.com/folioworks/folio/pkg/slogx"
)

// MFAManageHandler covers the self-service and admin MFA management
// endpoints. Every mutation re-confirms the caller's password; an
// authenticated session alone is not enough to change second-factor
// state.
type MFAManageHandler struct {
	AuthService *service.AuthService
	MFAService  *service.MFAService
}

// resolveTarget confirms the caller's password and resolves which
// account the operation applies to. Acting on another account requires
// users:manage.
func (h *MFAManageHandler) resolveTarget(
	w http.ResponseWriter, r *http.Request, req authsdk.MFAManageRequest,
) (targetID string, ok bool) {
	ctx := r.Context()

	caller, err := h.AuthService.ConfirmPassword(ctx, httpx.UsernameFromCtx(ctx), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			authsdk.ErrInvalidCredentials.WriteError(w)
		} else {
			slogx.FromContext(ctx).Error("password confirmation failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return "", false
	}

	if req.UserID == "" || req.UserID == caller.ID {
		return caller.ID, true
	}
	if !httpx.HasPermission(ctx, domain.PermUsersManage) {
		authsdk.ErrPermissionDenied.WriteError(w)
		return "", false
	}
	return req.UserID, true
}

func decodeManageRequest(w http.ResponseWriter, r *http.Request) (authsdk.MFAManageRequest, bool) {
	var req authsdk.MFAManageRequest
	if err := httpx.DecodeJSON(r, &req, 0); err != nil || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return req, false
	}
	return req, true
}

// HandleEnroll handles POST /v1/auth/mfa/enroll.
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a pending TOTP secret and returns provisioning material including a QR code. MFA stays off until verify-enrollment confirms a live code.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAManageRequest	true	"Password confirmation, optional target user_id"
//	@Success		200		{object}	authsdk.MFAEnrollResponse	"Provisioning material"
//	@Failure		400		{object}	authsdk.APIError			"Already enabled or malformed request"
//	@Failure		401		{object}	authsdk.APIError			"Password confirmation failed"
//	@Router			/v1/auth/mfa/enroll [post].
func (h *MFAManageHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeManageRequest(w, r)
	if !ok {
		return
	}
	targetID, ok := h.resolveTarget(w, r, req)
	if !ok {
		return
	}

	enrollment, err := h.MFAService.EnrollTOTP(ctx, targetID)
	if err != nil {
		if err == service.ErrMFAAlreadyEnabled {
			(&authsdk.APIError{
				StatusCode: http.StatusBadRequest,
				Detail:     "MFA is already enabled",
			}).WriteError(w)
			return
		}
		log.Error("TOTP enrollment failed", "user_id", targetID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAEnrollResponse{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.OTPAuthURL,
		QRCodePNG:  base64.StdEncoding.EncodeToString(enrollment.QRCodePNG),
		Issuer:     enrollment.Issuer,
		Account:    enrollment.Account,
	})
}

// HandleVerifyEnrollment handles POST /v1/auth/mfa/verify-enrollment.
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Verifies a live code against the pending secret, enables MFA, and returns the one-time backup code batch.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAManageRequest	true	"Password confirmation and TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"Backup codes, shown once"
//	@Failure		400		{object}	authsdk.APIError			"No pending enrollment"
//	@Failure		401		{object}	authsdk.APIError			"Bad password or TOTP code"
//	@Router			/v1/auth/mfa/verify-enrollment [post].
func (h *MFAManageHandler) HandleVerifyEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeManageRequest(w, r)
	if !ok {
		return
	}
	if req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	targetID, ok := h.resolveTarget(w, r, req)
	if !ok {
		return
	}

	codes, err := h.MFAService.VerifyEnrollment(ctx, targetID, req.Code)
	if err != nil {
		switch err {
		case service.ErrInvalidTOTPCode:
			authsdk.ErrInvalidMFACode.WriteError(w)
		case service.ErrMFANotEnrolled, service.ErrMFAAlreadyEnabled:
			(&authsdk.APIError{
				StatusCode: http.StatusBadRequest,
				Detail:     "no pending MFA enrollment",
			}).WriteError(w)
		default:
			log.Error("enrollment verification failed", "user_id", targetID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
}

// HandleDisable handles POST /v1/auth/mfa/disable.
//
//	@Summary		Disable MFA
//	@Description	Clears the TOTP secret and backup codes after password confirmation.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAManageRequest	true	"Password confirmation, optional target user_id"
//	@Success		200		{object}	authsdk.LogoutResponse		"MFA disabled"
//	@Failure		400		{object}	authsdk.APIError			"MFA not enabled"
//	@Failure		401		{object}	authsdk.APIError			"Password confirmation failed"
//	@Router			/v1/auth/mfa/disable [post].
func (h *MFAManageHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeManageRequest(w, r)
	if !ok {
		return
	}
	targetID, ok := h.resolveTarget(w, r, req)
	if !ok {
		return
	}

	if err := h.MFAService.Disable(ctx, targetID); err != nil {
		if err == service.ErrMFANotEnabled {
			(&authsdk.APIError{
				StatusCode: http.StatusBadRequest,
				Detail:     "MFA is not enabled",
			}).WriteError(w)
			return
		}
		log.Error("MFA disable failed", "user_id", targetID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		Success: true,
		Message: "MFA disabled",
	})
}

// HandleResetDevice handles POST /v1/auth/mfa/reset-device.
//
//	@Summary		Reset the MFA device
//	@Description	Issues a fresh secret and backup codes for a lost authenticator without a window where MFA is off. Revokes the account's refresh tokens.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAManageRequest		true	"Password confirmation, optional target user_id"
//	@Success		200		{object}	authsdk.MFAResetDeviceResponse	"New provisioning material and backup codes"
//	@Failure		400		{object}	authsdk.APIError				"MFA not enabled"
//	@Failure		401		{object}	authsdk.APIError				"Password confirmation failed"
//	@Router			/v1/auth/mfa/reset-device [post].
func (h *MFAManageHandler) HandleResetDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeManageRequest(w, r)
	if !ok {
		return
	}
	targetID, ok := h.resolveTarget(w, r, req)
	if !ok {
		return
	}

	enrollment, codes, err := h.MFAService.ResetDevice(ctx, targetID)
	if err != nil {
		if err == service.ErrMFANotEnabled {
			(&authsdk.APIError{
				StatusCode: http.StatusBadRequest,
				Detail:     "MFA is not enabled",
			}).WriteError(w)
			return
		}
		log.Error("MFA device reset failed", "user_id", targetID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAResetDeviceResponse{
		MFAEnrollResponse: authsdk.MFAEnrollResponse{
			Secret:     enrollment.Secret,
			OTPAuthURL: enrollment.OTPAuthURL,
			QRCodePNG:  base64.StdEncoding.EncodeToString(enrollment.QRCodePNG),
			Issuer:     enrollment.Issuer,
			Account:    enrollment.Account,
		},
		BackupCodes: codes,
	})
}

// HandleRegenerateBackupCodes handles POST /v1/auth/mfa/regenerate-backup-codes.
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces the whole backup code batch and returns the new plaintext codes.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAManageRequest	true	"Password confirmation, optional target user_id"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"New backup codes, shown once"
//	@Failure		400		{object}	authsdk.APIError			"MFA not enabled"
//	@Failure		401		{object}	authsdk.APIError			"Password confirmation failed"
//	@Router			/v1/auth/mfa/regenerate-backup-codes [post].
func (h *MFAManageHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeManageRequest(w, r)
	if !ok {
		return
	}
	targetID, ok := h.resolveTarget(w, r, req)
	if !ok {
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(ctx, targetID)
	if err != nil {
		if err == service.ErrMFANotEnabled {
			(&authsdk.APIError{
				StatusCode: http.StatusBadRequest,
				Detail:     "MFA is not enabled",
			}).WriteError(w)
			return
		}
		log.Error("backup code regeneration failed", "user_id", targetID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
}

// HandleStatus handles GET /v1/auth/mfa/status.
//
//	@Summary		MFA status
//	@Description	Reports whether MFA is enabled or pending and how many backup codes remain.
//	@Tags			MFA
//	@Produce		json
//	@Success		200	{object}	authsdk.MFAStatusResponse	"Second-factor state"
//	@Failure		401	{object}	authsdk.APIError			"Missing or invalid access token"
//	@Router			/v1/auth/mfa/status [get].
func (h *MFAManageHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Status is read-only; no password confirmation, caller only.
	user, _, err := h.AuthService.Verify(ctx, httpx.UsernameFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Warn("status failed to load user", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	status, err := h.MFAService.Status(ctx, user.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("MFA status lookup failed", "user_id", user.ID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAStatusResponse{
		Enabled:              status.Enabled,
		Pending:              status.Pending,
		EnrolledAt:           status.EnrolledAt,
		BackupCodesRemaining: status.BackupCodesRemaining,
	})
}
