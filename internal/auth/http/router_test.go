package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth/audit"
	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/internal/auth/store/drivers/sqlite"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/idx"
	"github.com/folioworks/folio/pkg/jwtx"
)

const testPassword = "correct horse battery staple"

type testServer struct {
	*httptest.Server

	Store store.Store
	Auth  *service.AuthService
	MFA   *service.MFAService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	dsn := filepath.Join(t.TempDir(), "auth.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec(
		[]byte("0123456789abcdef0123456789abcdef"), "folio-test", "")
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	mon := monitor.New(monitor.Options{Logger: quiet})

	// httptest serves plain HTTP, so the cookies must not be Secure.
	cookies := cookiex.New(cookiex.Options{Secure: false})

	mfa := &service.MFAService{Store: st, Issuer: "Folio"}
	auth := &service.AuthService{
		Store:    st,
		Codec:    codec,
		Security: &service.AccountSecurityService{Store: st},
		MFA:      mfa,
		Settings: &service.SettingsService{Store: st},
		Audit:    audit.Fanout{audit.NewStoreSink(st, quiet)},
		Monitor:  mon,
	}

	router := NewRouter(codec, cookies, "test", st, quiet)
	router.AuthService = auth
	router.MFAService = mfa
	router.Monitor = mon
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, Store: st, Auth: auth, MFA: mfa}
}

// clientIPCounter hands each test client its own source IP so the
// per-IP rate limiter never couples independent tests.
var clientIPCounter atomic.Int64

type spoofedIPTransport struct {
	ip     string
	rotate bool
	n      atomic.Int64
}

func (tr *spoofedIPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ip := tr.ip
	if tr.rotate {
		ip = fmt.Sprintf("%s.%d", tr.ip, tr.n.Add(1))
	}
	req.Header.Set("X-Forwarded-For", ip)
	return http.DefaultTransport.RoundTrip(req)
}

func (s *testServer) client(t *testing.T) *authsdk.Client {
	t.Helper()
	c, err := authsdk.NewClient(s.URL)
	require.NoError(t, err)
	c.HTTPClient.Transport = &spoofedIPTransport{
		ip: fmt.Sprintf("198.51.100.%d", clientIPCounter.Add(1)),
	}
	return c
}

// rotatingClient changes its source IP every request, for tests that
// exercise per-account state past the per-IP limit.
func (s *testServer) rotatingClient(t *testing.T) *authsdk.Client {
	t.Helper()
	c, err := authsdk.NewClient(s.URL)
	require.NoError(t, err)
	c.HTTPClient.Transport = &spoofedIPTransport{
		ip:     fmt.Sprintf("203.0.%d", clientIPCounter.Add(1)),
		rotate: true,
	}
	return c
}

type userOpt func(*domain.User)

func withRole(roleID string) userOpt { return func(u *domain.User) { u.RoleID = roleID } }

func (s *testServer) createRole(t *testing.T, perms ...string) domain.Role {
	t.Helper()
	role := domain.Role{
		ID:          idx.New().String(),
		Name:        "role-" + idx.New().String(),
		Permissions: perms,
	}
	require.NoError(t, s.Store.Roles().CreateRole(context.Background(), role))
	return role
}

func (s *testServer) createUser(t *testing.T, opts ...userOpt) domain.User {
	t.Helper()
	ctx := context.Background()

	role := s.createRole(t, domain.PermWebsiteEdit, domain.PermSecurityRead)

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "user-" + idx.New().String(),
		Email:        "user@example.com",
		PasswordHash: hash,
		RoleID:       role.ID,
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(&u)
	}
	require.NoError(t, s.Store.Users().CreateUser(ctx, u))
	return u
}

func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	return code
}

func requireAPIError(t *testing.T, err error, status int) *authsdk.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*authsdk.APIError)
	require.True(t, ok, "expected *authsdk.APIError, got %T: %v", err, err)
	require.Equal(t, status, apiErr.StatusCode)
	return apiErr
}

func TestLoginLogoutFlow(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	login, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)
	require.True(t, login.Success)
	require.NotEmpty(t, login.CSRFToken)
	require.False(t, login.MFARequired)
	require.NotNil(t, login.User)
	require.Equal(t, user.Username, login.User.Username)
	require.Contains(t, login.User.Permissions, domain.PermWebsiteEdit)

	verify, err := c.Verify(ctx)
	require.NoError(t, err)
	require.True(t, verify.Valid)
	require.Equal(t, user.ID, verify.UserID)
	require.Equal(t, user.Username, verify.Username)
	require.True(t, verify.IsActive)

	edit, err := c.WebsiteEditToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, edit.Token)
	require.Equal(t, 15*60, edit.ExpiresIn)

	out, err := c.Logout(ctx)
	require.NoError(t, err)
	require.True(t, out.Success)

	_, err = c.Verify(ctx)
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)

	_, err := c.Login(context.Background(), user.Username, "wrong password")
	apiErr := requireAPIError(t, err, http.StatusUnauthorized)
	require.Equal(t, "invalid username or password", apiErr.Detail)

	// Unknown accounts get the identical response.
	_, err = c.Login(context.Background(), "nobody-here", "wrong password")
	apiErr2 := requireAPIError(t, err, http.StatusUnauthorized)
	require.Equal(t, apiErr.Detail, apiErr2.Detail)
}

func TestLoginLockedAccountBody(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.rotatingClient(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Login(ctx, user.Username, "wrong password")
		requireAPIError(t, err, http.StatusUnauthorized)
	}

	// Correct password while locked still returns 423.
	_, err := c.Login(ctx, user.Username, testPassword)
	apiErr := requireAPIError(t, err, http.StatusLocked)
	require.Positive(t, apiErr.LockedUntilMinutes)
	require.NotEmpty(t, apiErr.Detail)
}

func TestRefreshFlow(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	login, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)

	refreshed, err := c.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, refreshed.Success)
	require.NotEmpty(t, refreshed.CSRFToken)
	require.NotEqual(t, login.CSRFToken, refreshed.CSRFToken)

	verify, err := c.Verify(ctx)
	require.NoError(t, err)
	require.True(t, verify.Valid)
}

func TestRefreshWithoutCookie(t *testing.T) {
	srv := newTestServer(t)
	c := srv.client(t)

	_, err := c.Refresh(context.Background())
	requireAPIError(t, err, http.StatusBadRequest)
}

func TestCSRFEnforcedOnMutations(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	_, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)

	// Same cookie jar, but no X-CSRF-Token header.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		srv.URL+"/v1/auth/website-token", nil)
	require.NoError(t, err)

	resp, err := c.HTTPClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// With the header echoed it goes through.
	edit, err := c.WebsiteEditToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, edit.Token)
}

func TestMFALoginFlow(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	_, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)

	enroll, err := c.EnrollMFA(ctx, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)
	require.NotEmpty(t, enroll.QRCodePNG)

	codes, err := c.VerifyMFAEnrollment(ctx, testPassword, totpCode(t, enroll.Secret))
	require.NoError(t, err)
	require.Len(t, codes.BackupCodes, 10)

	status, err := c.MFAStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.Enabled)
	require.Equal(t, 10, status.BackupCodesRemaining)

	_, err = c.Logout(ctx)
	require.NoError(t, err)

	// Password alone now yields a challenge, not a session.
	challenge, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)
	require.True(t, challenge.MFARequired)
	require.NotEmpty(t, challenge.SessionToken)
	require.False(t, challenge.Success)

	_, err = c.Verify(ctx)
	requireAPIError(t, err, http.StatusUnauthorized)

	login, err := c.VerifyMFALogin(ctx, challenge.SessionToken, totpCode(t, enroll.Secret))
	require.NoError(t, err)
	require.True(t, login.Success)
	require.NotNil(t, login.User)

	verify, err := c.Verify(ctx)
	require.NoError(t, err)
	require.True(t, verify.Valid)
	require.Equal(t, user.Username, verify.Username)
}

func TestMFAVerifyLoginRejectsBadCode(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	_, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)
	enroll, err := c.EnrollMFA(ctx, testPassword)
	require.NoError(t, err)
	_, err = c.VerifyMFAEnrollment(ctx, testPassword, totpCode(t, enroll.Secret))
	require.NoError(t, err)
	_, err = c.Logout(ctx)
	require.NoError(t, err)

	challenge, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)

	_, err = c.VerifyMFALogin(ctx, challenge.SessionToken, "000000")
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestMFAManageRequiresPasswordConfirmation(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	_, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)

	_, err = c.EnrollMFA(ctx, "wrong password")
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestMFAManageAdminTarget(t *testing.T) {
	srv := newTestServer(t)

	adminRole := srv.createRole(t, domain.PermUsersManage)
	admin := srv.createUser(t, withRole(adminRole.ID))
	target := srv.createUser(t)

	plainRole := srv.createRole(t)
	plain := srv.createUser(t, withRole(plainRole.ID))

	ctx := context.Background()

	enrollFor := func(c *authsdk.Client, targetID string) (*http.Response, error) {
		body, err := json.Marshal(authsdk.MFAManageRequest{
			Password: testPassword,
			UserID:   targetID,
		})
		require.NoError(t, err)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			srv.URL+"/v1/auth/mfa/enroll", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-CSRF-Token", c.CSRFToken())
		return c.HTTPClient.Do(req)
	}

	// users:manage may act on another account.
	adminClient := srv.client(t)
	_, err := adminClient.Login(ctx, admin.Username, testPassword)
	require.NoError(t, err)

	resp, err := enrollFor(adminClient, target.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var enroll authsdk.MFAEnrollResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&enroll))
	require.NotEmpty(t, enroll.Secret)

	// A plain account targeting someone else is refused.
	plainClient := srv.client(t)
	_, err = plainClient.Login(ctx, plain.Username, testPassword)
	require.NoError(t, err)

	resp2, err := enrollFor(plainClient, target.ID)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusForbidden, resp2.StatusCode)
}

func TestSecurityEndpointsRequirePermission(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	plainRole := srv.createRole(t, domain.PermWebsiteEdit)
	plain := srv.createUser(t, withRole(plainRole.ID))
	reader := srv.createUser(t) // default role carries security:read

	get := func(c *authsdk.Client, path string) *http.Response {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		resp, err := c.HTTPClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	plainClient := srv.client(t)
	_, err := plainClient.Login(ctx, plain.Username, testPassword)
	require.NoError(t, err)

	resp := get(plainClient, "/v1/security/events")
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	readerClient := srv.client(t)
	_, err = readerClient.Login(ctx, reader.Username, testPassword)
	require.NoError(t, err)

	events := get(readerClient, "/v1/security/events?severity=warning")
	defer events.Body.Close()
	require.Equal(t, http.StatusOK, events.StatusCode)

	var list []domain.SecurityEvent
	require.NoError(t, json.NewDecoder(events.Body).Decode(&list))
	for _, e := range list {
		require.Equal(t, domain.SeverityWarning, e.Severity)
	}

	metrics := get(readerClient, "/v1/security/metrics")
	defer metrics.Body.Close()
	require.Equal(t, http.StatusOK, metrics.StatusCode)

	var m monitor.Metrics
	require.NoError(t, json.NewDecoder(metrics.Body).Decode(&m))

	summary := get(readerClient, "/v1/security/attack-summary?hours=1")
	defer summary.Body.Close()
	require.Equal(t, http.StatusOK, summary.StatusCode)

	var agg monitor.AttackSummary
	require.NoError(t, json.NewDecoder(summary.Body).Decode(&agg))
	require.Equal(t, 1, agg.WindowHours)
}

func TestLogoutWithoutSession(t *testing.T) {
	srv := newTestServer(t)
	c := srv.client(t)

	out, err := c.Logout(context.Background())
	require.NoError(t, err)
	require.True(t, out.Success)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	for _, path := range []string{"/livez", "/readyz"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		var health authsdk.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "ok", health.Status, path)
		require.NotEmpty(t, health.Uptime, path)
	}
}

func TestCSRFTokenEndpointRotatesToken(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t)
	c := srv.client(t)
	ctx := context.Background()

	login, err := c.Login(ctx, user.Username, testPassword)
	require.NoError(t, err)

	fresh, err := c.FetchCSRFToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, fresh.CSRFToken)
	require.NotEqual(t, login.CSRFToken, fresh.CSRFToken)

	// The rotated token is the one the next mutation must echo.
	edit, err := c.WebsiteEditToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, edit.Token)
}
