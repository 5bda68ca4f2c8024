package authsdk

import "time"

// LoginRequest is the JSON body for POST /v1/auth/login. The endpoint
// also accepts the same fields form-encoded.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserPayload is the sanitized user representation returned by login,
// verify-login, and verify. It never carries the password hash, the
// TOTP secret, or raw tokens.
type UserPayload struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse is the success body for login and mfa/verify-login.
// Tokens travel only in httpOnly cookies; the CSRF token is the one
// session secret exposed to script.
type LoginResponse struct {
	Success   bool        `json:"success"`
	CSRFToken string      `json:"csrf_token,omitempty"`
	User      *UserPayload `json:"user,omitempty"`

	// MFA challenge branch: no cookies were set and the client must
	// call mfa/verify-login with SessionToken.
	MFARequired  bool   `json:"mfa_required,omitempty"`
	SessionToken string `json:"session_token,omitempty"`

	// Set when a backup code completed the login.
	BackupCodeUsed       bool `json:"backup_code_used,omitempty"`
	BackupCodesRemaining int  `json:"backup_codes_remaining,omitempty"`
}

// RefreshResponse is the body for POST /v1/auth/refresh-token.
type RefreshResponse struct {
	Success   bool   `json:"success"`
	CSRFToken string `json:"csrf_token"`
}

// MFAVerifyLoginRequest is the body for POST /v1/auth/mfa/verify-login.
type MFAVerifyLoginRequest struct {
	SessionToken string `json:"session_token"`
	Code         string `json:"code"`
}

// LogoutResponse is the body for POST /v1/auth/logout.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyResponse is the body for GET /v1/auth/verify.
type VerifyResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// CSRFTokenResponse is the body for GET /v1/auth/csrf-token.
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
	Message   string `json:"message"`
}

// WebsiteEditTokenResponse is the body for POST /v1/auth/website-token.
// This is the single deliberate exception to the no-tokens-in-bodies
// rule: the public site runs on a different origin and cannot share the
// admin cookies, so it receives a short-lived, narrowly-scoped token.
type WebsiteEditTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// MFAManageRequest is the shared body for the MFA management endpoints.
// Password re-confirmation is required even on an authenticated
// session. UserID may name another account when the caller holds
// users:manage.
type MFAManageRequest struct {
	Password string `json:"password"`
	UserID   string `json:"user_id,omitempty"`
	Code     string `json:"code,omitempty"`
}

// MFAEnrollResponse carries TOTP provisioning material. The secret and
// QR code are shown once during enrollment.
type MFAEnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCodePNG  string `json:"qr_code_png"` // base64-encoded PNG
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

// BackupCodesResponse carries a plaintext backup code batch. Codes are
// shown exactly once; the server stores only fingerprints.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// MFAResetDeviceResponse bundles fresh provisioning material with the
// replacement backup codes after a device reset.
type MFAResetDeviceResponse struct {
	MFAEnrollResponse
	BackupCodes []string `json:"backup_codes"`
}

// MFAStatusResponse is the body for GET /v1/auth/mfa/status.
type MFAStatusResponse struct {
	Enabled              bool       `json:"enabled"`
	Pending              bool       `json:"pending"`
	EnrolledAt           *time.Time `json:"enrolled_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

// HealthResponse is the body for the livez/readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks itemizes dependency states for readyz.
type HealthChecks struct {
	Database string `json:"database"`
}
