package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/jwtx"
)

func TestLoginSuccess(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	result := s.login(t, u.Username)

	require.NotEmpty(t, result.Tokens.AccessToken)
	require.NotEmpty(t, result.Tokens.RefreshToken)
	require.NotEmpty(t, result.SessionID)

	claims, err := s.Codec.Verify(result.Tokens.AccessToken, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, u.Username, claims.Subject)
	require.Equal(t, result.SessionID, claims.SID)
	require.Contains(t, claims.Permissions(), domain.PermWebsiteEdit)

	// Refresh token is anchored server-side for revocation.
	record, err := s.Store.RefreshTokens().GetRefreshTokenByHash(
		ctx, cryptox.FingerprintToken(result.Tokens.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, u.ID, record.UserID)
	require.False(t, record.Revoked)

	// Last-login metadata was stamped.
	got, err := s.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.Equal(t, "203.0.113.10", got.LastLoginIP)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	_, badPass := s.Auth.Login(ctx, LoginInput{
		Username: u.Username, Password: "wrong", IP: "198.51.100.1",
	})
	_, unknownUser := s.Auth.Login(ctx, LoginInput{
		Username: "nobody", Password: "wrong", IP: "198.51.100.1",
	})

	require.ErrorIs(t, badPass, ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	require.Equal(t, badPass.Error(), unknownUser.Error())
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, err := s.Auth.Login(ctx, LoginInput{
			Username: u.Username, Password: "wrong", IP: "198.51.100.1",
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the correct password is rejected while locked.
	_, err := s.Auth.Login(ctx, LoginInput{
		Username: u.Username, Password: testPassword, IP: "198.51.100.1",
	})
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	require.Greater(t, locked.Minutes, 0)
}

func TestLoginInactiveAccount(t *testing.T) {
	s := newTestStack(t)
	u := s.createUser(t, inactive())

	_, err := s.Auth.Login(context.Background(), LoginInput{
		Username: u.Username, Password: testPassword,
	})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginForcedPasswordChange(t *testing.T) {
	s := newTestStack(t)
	u := s.createUser(t, forcePasswordChange())

	_, err := s.Auth.Login(context.Background(), LoginInput{
		Username: u.Username, Password: testPassword,
	})
	require.ErrorIs(t, err, ErrPasswordChangeRequired)
}

func TestLoginRequiresSecondFactorWhenEnrolled(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)
	s.enableMFA(t, u.ID)

	_, err := s.Auth.Login(ctx, LoginInput{
		Username: u.Username, Password: testPassword, IP: "203.0.113.10",
	})

	var mfaReq *MFARequiredError
	require.ErrorAs(t, err, &mfaReq)
	require.NotEmpty(t, mfaReq.SessionToken)

	// The challenge token is mfa-typed and unusable as an access token.
	claims, err := s.Codec.Verify(mfaReq.SessionToken, jwtx.TokenTypeMFA)
	require.NoError(t, err)
	require.True(t, claims.MFAPending)
	_, err = s.Codec.Verify(mfaReq.SessionToken, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrWrongType)

	// Server-side session row exists with a zero attempt count.
	session, err := s.Store.MFASessions().GetMFASession(ctx, claims.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, session.UserID)
	require.Zero(t, session.Attempts)
}

func TestBreakGlassBypassesAllGates(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t, inactive())
	s.enableMFA(t, u.ID)
	s.Auth.BreakGlassUsers = []string{u.Username}

	// Lock the account too.
	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, _, err := s.Auth.Security.RecordFailedLogin(ctx, &u, "198.51.100.1")
		require.NoError(t, err)
	}

	result, err := s.Auth.Login(ctx, LoginInput{
		Username: u.Username, Password: testPassword, IP: "203.0.113.10",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Tokens.AccessToken)

	// The bypass itself never skips the password check.
	_, err = s.Auth.Login(ctx, LoginInput{
		Username: u.Username, Password: "wrong", IP: "203.0.113.10",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Every use is tracked at critical severity.
	events := s.Monitor.RecentEvents(10, monitor.Filter{Type: domain.EventBreakGlassUsed})
	require.NotEmpty(t, events)
}

func TestRefreshRotatesAndRevokesOldToken(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	first := s.login(t, u.Username)

	second, err := s.Auth.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)
	require.Equal(t, first.SessionID, second.SessionID)

	// Replaying the rotated-out token fails and burns the session.
	_, err = s.Auth.Refresh(ctx, first.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = s.Auth.Refresh(ctx, second.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	s := newTestStack(t)
	u := s.createUser(t)
	result := s.login(t, u.Username)

	_, err := s.Auth.Refresh(context.Background(), result.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshRejectsExpiredServerRecord(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	// The signed token is still valid for days; the server-side row
	// expiring is enough to kill it.
	token, err := s.Codec.Mint(jwtx.TokenTypeRefresh, u.Username, "sess-1", jwtx.DefaultRefreshTokenTTL)
	require.NoError(t, err)
	require.NoError(t, s.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        "rt-expired",
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(token),
		SessionID: "sess-1",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	_, err = s.Auth.Refresh(ctx, token)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)
	result := s.login(t, u.Username)

	username := s.Auth.Logout(ctx, result.Tokens.AccessToken)
	require.Equal(t, u.Username, username)

	_, err := s.Auth.Refresh(ctx, result.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogoutNeverFails(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	require.Empty(t, s.Auth.Logout(ctx, ""))
	require.Empty(t, s.Auth.Logout(ctx, "not-a-jwt"))
	require.Empty(t, s.Auth.Logout(ctx, "aaa.bbb.ccc"))
}

func TestVerifyReturnsUserAndRole(t *testing.T) {
	s := newTestStack(t)
	u := s.createUser(t)

	user, role, err := s.Auth.Verify(context.Background(), u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, user.ID)
	require.Contains(t, role.Permissions, domain.PermWebsiteEdit)
}

func TestConfirmPassword(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	got, err := s.Auth.ConfirmPassword(ctx, u.Username, testPassword)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = s.Auth.ConfirmPassword(ctx, u.Username, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Auth.ConfirmPassword(ctx, "nobody", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueWebsiteEditToken(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)

	token, ttl, err := s.Auth.IssueWebsiteEditToken(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, websiteEditTokenTTL, ttl)

	claims, err := s.Codec.Verify(token, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, []string{domain.PermWebsiteEdit}, claims.Permissions())
	require.WithinDuration(t,
		time.Now().Add(websiteEditTokenTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueWebsiteEditTokenRequiresPermission(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	role := domain.Role{
		ID:          "role-viewer",
		Name:        "viewer",
		Permissions: []string{domain.PermSecurityRead},
	}
	require.NoError(t, s.Store.Roles().CreateRole(ctx, role))

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	u := domain.User{
		ID: "user-viewer", Username: "viewer", Email: "v@example.com",
		PasswordHash: hash, RoleID: role.ID, IsActive: true,
	}
	require.NoError(t, s.Store.Users().CreateUser(ctx, u))

	_, _, err = s.Auth.IssueWebsiteEditToken(ctx, u.Username)
	require.ErrorIs(t, err, ErrPermissionDenied)
}
