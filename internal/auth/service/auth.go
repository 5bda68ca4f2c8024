package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/folioworks/folio/internal/auth/audit"
	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/idx"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// websiteEditTokenTTL bounds the short-lived token minted for the
// public-site edit flow.
const websiteEditTokenTTL = 15 * time.Minute

var (
	// ErrInvalidCredentials is returned for unknown users and wrong
	// passwords alike; callers must not be able to tell which.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrAccountInactive        = errors.New("account_inactive")
	ErrPasswordChangeRequired = errors.New("password_change_required")
	ErrInvalidRefresh         = errors.New("invalid_refresh_token")
	ErrMFASessionInvalid      = errors.New("invalid_mfa_session")
	ErrInvalidMFACode         = errors.New("invalid_mfa_code")
	ErrTooManyAttempts        = errors.New("too_many_attempts")
	ErrPermissionDenied       = errors.New("permission_denied")

	// ErrInternal hides database and infrastructure failures from the
	// response; the real error is logged and tracked before this is
	// returned.
	ErrInternal = errors.New("internal_error")
)

// LockedError carries how long the caller has to wait.
type LockedError struct {
	Minutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %d minutes", e.Minutes)
}

// MFARequiredError is the login outcome when the password was correct
// but a second factor is outstanding. SessionToken is the 5-minute
// mfa-type token the client must echo to VerifyMFALogin.
type MFARequiredError struct {
	SessionToken string
}

func (e *MFARequiredError) Error() string { return "mfa_required" }

type LoginInput struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is a completed authentication: tokens minted, metadata
// stamped, audit written. Cookie binding happens in the HTTP layer.
type LoginResult struct {
	User      domain.User
	Role      domain.Role
	Tokens    domain.TokenPair
	SessionID string

	// Set by the MFA-verify path when a backup code was consumed.
	BackupCodeUsed       bool
	BackupCodesRemaining int
}

type AuthService struct {
	Store    store.Store
	Codec    *jwtx.Codec
	Security *AccountSecurityService
	MFA      *MFAService
	Settings *SettingsService
	Audit    audit.Logger
	Monitor  *monitor.Monitor

	// BreakGlassUsers bypass lockout, active, force-reset, and MFA
	// gates. Empty in production unless an emergency access path is
	// deliberately provisioned; every use is tracked at critical
	// severity.
	BreakGlassUsers []string

	// dummy hash verified for unknown usernames so the response time
	// doesn't reveal whether the account exists.
	timingHashOnce sync.Once
	timingHash     string
}

// Login runs the full authentication state machine. On success the
// returned result carries a fresh token pair; MFA-enabled accounts get
// a MFARequiredError carrying the challenge token instead.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Look up the user. An unknown username still pays for a
	// password verification below.
	user, err := s.Store.Users().GetUserByUsername(ctx, in.Username)
	userFound := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, s.internalFailure(ctx, in.Username, "", in.IP, err)
	}

	exempt := userFound && s.isBreakGlass(user.Username)
	if exempt {
		s.Monitor.TrackEvent(domain.EventBreakGlassUsed, domain.SeverityCritical,
			user.ID, in.IP, map[string]string{"username": user.Username})
		s.Audit.SecurityEvent(ctx, domain.SecurityEvent{
			Type:     domain.EventBreakGlassUsed,
			Severity: domain.SeverityCritical,
			UserID:   user.ID,
			IP:       in.IP,
		})
		log.Warn("break-glass account login path", "username", user.Username, "ip", in.IP)
	}

	// 2. Lockout gate runs before the password check: a locked account
	// reveals nothing about password correctness.
	if userFound && !exempt {
		if locked, minutes := s.Security.IsLocked(&user); locked {
			s.auditAttempt(ctx, in, user.ID, false, domain.ReasonAccountLocked)
			s.Monitor.TrackEvent(domain.EventAccountLocked, domain.SeverityWarning,
				user.ID, in.IP, nil)
			return nil, &LockedError{Minutes: minutes}
		}
	}

	// 3. Verify the password. Unknown users verify against a dummy
	// hash so both branches cost the same.
	hash := s.timingEqualizationHash()
	if userFound {
		hash = user.PasswordHash
	}
	passErr := cryptox.VerifyPassword(in.Password, hash)

	if !userFound || passErr != nil {
		return nil, s.failCredentials(ctx, in, user, userFound, exempt)
	}

	// 4. Inactive accounts authenticate but may not proceed.
	if !user.IsActive && !exempt {
		s.auditAttempt(ctx, in, user.ID, false, domain.ReasonAccountInactive)
		return nil, ErrAccountInactive
	}

	// 5. Expired-password gate.
	if user.ForcePasswordChange && !exempt {
		s.auditAttempt(ctx, in, user.ID, false, domain.ReasonPasswordExpired)
		return nil, ErrPasswordChangeRequired
	}

	// 6. MFA branch: mint the challenge token, record the server-side
	// session, and stop here.
	if user.MFAEnabled && !exempt {
		token, err := s.mintMFAChallenge(ctx, &user)
		if err != nil {
			return nil, s.internalFailure(ctx, in.Username, user.ID, in.IP, err)
		}
		s.auditAttempt(ctx, in, user.ID, false, domain.ReasonMFARequired)
		return nil, &MFARequiredError{SessionToken: token}
	}

	// 7-12. Shared tail with the MFA-verify path.
	result, err := s.completeLogin(ctx, &user, in.IP, in.UserAgent)
	if err != nil {
		return nil, s.internalFailure(ctx, in.Username, user.ID, in.IP, err)
	}
	s.auditAttempt(ctx, in, user.ID, true, "")
	return result, nil
}

// failCredentials is the single exit for wrong-password and
// unknown-user outcomes so both produce identical messaging.
func (s *AuthService) failCredentials(
	ctx context.Context,
	in LoginInput,
	user domain.User,
	userFound, exempt bool,
) error {
	if userFound && !exempt {
		lockedNow, _, err := s.Security.RecordFailedLogin(ctx, &user, in.IP)
		if err != nil {
			return s.internalFailure(ctx, in.Username, user.ID, in.IP, err)
		}
		if lockedNow {
			s.Monitor.TrackEvent(domain.EventAccountLocked, domain.SeverityWarning,
				user.ID, in.IP, map[string]string{"attempts": fmt.Sprint(user.FailedLoginAttempts)})
		}
	}

	userID := ""
	reason := domain.ReasonUnknownUser
	if userFound {
		userID = user.ID
		reason = domain.ReasonBadPassword
	}
	s.auditAttempt(ctx, in, userID, false, reason)

	s.Monitor.TrackEvent(domain.EventLoginFailed, domain.SeverityWarning, userID, in.IP, nil)
	// login_failed is below the severity that triggers detection inside
	// TrackEvent, so run the window check explicitly.
	s.Monitor.DetectAnomaly(userID, in.IP, domain.EventLoginFailed)

	return ErrInvalidCredentials
}

// completeLogin is steps 7-12 of the login algorithm, shared by the
// password-only and MFA-verified paths.
func (s *AuthService) completeLogin(
	ctx context.Context,
	user *domain.User,
	ip, userAgent string,
) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	// 7. Advisory suspicious-login heuristic. Never blocks.
	if suspicious, reasons := s.Security.DetectSuspiciousLogin(user, ip, userAgent); suspicious {
		details := map[string]string{"reasons": strings.Join(reasons, ",")}
		s.Monitor.TrackEvent(domain.EventSuspiciousLogin, domain.SeverityWarning,
			user.ID, ip, details)
		s.Audit.SecurityEvent(ctx, domain.SecurityEvent{
			Type:     domain.EventSuspiciousLogin,
			Severity: domain.SeverityWarning,
			UserID:   user.ID,
			IP:       ip,
			Details:  details,
		})
		log.Warn("suspicious login", "user_id", user.ID, "reasons", reasons)
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}

	// 8. Dynamic lifetimes; settings failures fall back internally.
	accessTTL := s.Settings.AccessTokenTTL(ctx)
	refreshTTL := s.Settings.RefreshTokenTTL(ctx)

	// 9. Mint the pair under a fresh session ID.
	sessionID := idx.New().String()
	pair, err := s.mintTokenPair(ctx, user, role, sessionID, accessTTL, refreshTTL)
	if err != nil {
		return nil, err
	}

	// 10. Reset counters and stamp last-login metadata.
	if err := s.Security.UpdateLoginMetadata(ctx, user, ip, userAgent); err != nil {
		return nil, err
	}

	// 11. Observe the success.
	s.Monitor.TrackEvent(domain.EventLoginSuccess, domain.SeverityInfo, user.ID, ip,
		map[string]string{"role": role.Name})
	log.Info("login succeeded", "user_id", user.ID, "role", role.Name)

	return &LoginResult{
		User:      *user,
		Role:      role,
		Tokens:    pair,
		SessionID: sessionID,
	}, nil
}

// mintTokenPair signs an access/refresh pair and persists the refresh
// token's fingerprint for later revocation.
func (s *AuthService) mintTokenPair(
	ctx context.Context,
	user *domain.User,
	role domain.Role,
	sessionID string,
	accessTTL, refreshTTL time.Duration,
) (domain.TokenPair, error) {
	scope := strings.Join(role.Permissions, " ")

	access, err := s.Codec.MintScoped(
		jwtx.TokenTypeAccess, user.Username, sessionID, scope, accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	refresh, err := s.Codec.Mint(jwtx.TokenTypeRefresh, user.Username, sessionID, refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		SessionID: sessionID,
		ExpiresAt: time.Now().UTC().Add(refreshTTL),
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  accessTTL,
		RefreshExpiresIn: refreshTTL,
	}, nil
}

func (s *AuthService) mintMFAChallenge(ctx context.Context, user *domain.User) (string, error) {
	claims := jwtx.NewClaims(
		jwtx.TokenTypeMFA, user.Username, "", s.Codec.Issuer(),
		jwtx.DefaultMFASessionTTL, time.Now().UTC())

	token, err := s.Codec.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("mint MFA session token: %w", err)
	}

	// The row keyed by jti gives the 5-minute window a server-side
	// attempt counter.
	err = s.Store.MFASessions().CreateMFASession(ctx, domain.MFASession{
		ID:        claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return "", fmt.Errorf("persist MFA session: %w", err)
	}

	return token, nil
}

func (s *AuthService) isBreakGlass(username string) bool {
	for _, u := range s.BreakGlassUsers {
		if u == username {
			return true
		}
	}
	return false
}

func (s *AuthService) timingEqualizationHash() string {
	s.timingHashOnce.Do(func() {
		h, err := cryptox.HashPassword(cryptox.MustGenerateToken(cryptox.TokenSize128))
		if err == nil {
			s.timingHash = h
		}
	})
	return s.timingHash
}

func (s *AuthService) auditAttempt(
	ctx context.Context,
	in LoginInput,
	userID string,
	success bool,
	reason string,
) {
	s.Audit.LoginAttempt(ctx, domain.LoginAttempt{
		Username:  in.Username,
		UserID:    userID,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		Success:   success,
		Reason:    reason,
	})
}

// internalFailure logs and tracks an infrastructure error, then returns
// the generic ErrInternal so nothing internal leaks to the client.
func (s *AuthService) internalFailure(
	ctx context.Context,
	username, userID, ip string,
	err error,
) error {
	slogx.FromContext(ctx).Error("login infrastructure failure",
		"username", username, "err", err)
	s.Monitor.TrackEvent(domain.EventInternalError, domain.SeverityError, userID, ip,
		map[string]string{"stage": "login"})
	s.Audit.LoginAttempt(ctx, domain.LoginAttempt{
		Username: username,
		UserID:   userID,
		IP:       ip,
		Success:  false,
		Reason:   domain.ReasonInternal,
	})
	return ErrInternal
}
