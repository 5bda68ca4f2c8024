// Package authsdk is a typed client for the Folio auth service. It
// keeps the httpOnly auth cookies in a jar and echoes the CSRF token on
// state-changing requests the way a browser client would.
package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client talks to one auth service instance. It is not safe for
// concurrent use; each test or session should build its own.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	csrfToken string
}

// NewClient builds a client with a fresh cookie jar.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CSRFToken returns the CSRF value from the most recent login or
// refresh.
func (c *Client) CSRFToken() string { return c.csrfToken }

// Login runs the password step. When the account has MFA enabled the
// response carries MFARequired plus the session token and no cookies
// are set yet.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login",
		LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	if out.CSRFToken != "" {
		c.csrfToken = out.CSRFToken
	}
	return &out, nil
}

// VerifyMFALogin completes an MFA-gated login with a TOTP or backup
// code.
func (c *Client) VerifyMFALogin(ctx context.Context, sessionToken, code string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/mfa/verify-login",
		MFAVerifyLoginRequest{SessionToken: sessionToken, Code: code}, &out)
	if err != nil {
		return nil, err
	}
	if out.CSRFToken != "" {
		c.csrfToken = out.CSRFToken
	}
	return &out, nil
}

// Refresh rotates the token pair using the refresh cookie.
func (c *Client) Refresh(ctx context.Context) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh-token", nil, &out); err != nil {
		return nil, err
	}
	if out.CSRFToken != "" {
		c.csrfToken = out.CSRFToken
	}
	return &out, nil
}

// Logout ends the session. It succeeds even without one.
func (c *Client) Logout(ctx context.Context) (*LogoutResponse, error) {
	var out LogoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, &out); err != nil {
		return nil, err
	}
	c.csrfToken = ""
	return &out, nil
}

// Verify reports who the cookie session belongs to.
func (c *Client) Verify(ctx context.Context) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodGet, "/v1/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCSRFToken mints a fresh CSRF token without re-authenticating.
func (c *Client) FetchCSRFToken(ctx context.Context) (*CSRFTokenResponse, error) {
	var out CSRFTokenResponse
	if err := c.do(ctx, http.MethodGet, "/v1/auth/csrf-token", nil, &out); err != nil {
		return nil, err
	}
	c.csrfToken = out.CSRFToken
	return &out, nil
}

// WebsiteEditToken requests a short-lived edit token for the public
// site origin.
func (c *Client) WebsiteEditToken(ctx context.Context) (*WebsiteEditTokenResponse, error) {
	var out WebsiteEditTokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/website-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollMFA starts TOTP enrollment for the calling account.
func (c *Client) EnrollMFA(ctx context.Context, password string) (*MFAEnrollResponse, error) {
	var out MFAEnrollResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/mfa/enroll",
		MFAManageRequest{Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFAEnrollment confirms the pending secret and returns the
// one-time backup code batch.
func (c *Client) VerifyMFAEnrollment(ctx context.Context, password, code string) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/mfa/verify-enrollment",
		MFAManageRequest{Password: password, Code: code}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableMFA turns the second factor off.
func (c *Client) DisableMFA(ctx context.Context, password string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/mfa/disable",
		MFAManageRequest{Password: password}, nil)
}

// ResetMFADevice swaps in a fresh secret and backup codes without a
// window where MFA is off.
func (c *Client) ResetMFADevice(ctx context.Context, password string) (*MFAResetDeviceResponse, error) {
	var out MFAResetDeviceResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/mfa/reset-device",
		MFAManageRequest{Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateBackupCodes replaces the backup code batch.
func (c *Client) RegenerateBackupCodes(ctx context.Context, password string) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/mfa/regenerate-backup-codes",
		MFAManageRequest{Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MFAStatus reports the calling account's second-factor state.
func (c *Client) MFAStatus(ctx context.Context) (*MFAStatusResponse, error) {
	var out MFAStatusResponse
	if err := c.do(ctx, http.MethodGet, "/v1/auth/mfa/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.csrfToken != "" {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Detail = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
