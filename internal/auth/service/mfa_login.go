package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// VerifyMFALogin completes a login that stopped at the second factor.
// sessionToken is the mfa-type token Login handed out; code is either a
// 6-digit TOTP code or an XXXX-XXXX backup code, dispatched by shape.
func (s *AuthService) VerifyMFALogin(
	ctx context.Context,
	sessionToken, code, ip, userAgent string,
) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	// 1. The token must verify as the mfa type specifically; access and
	// refresh tokens can never stand in for the challenge.
	claims, err := s.Codec.Verify(sessionToken, jwtx.TokenTypeMFA)
	if err != nil || !claims.MFAPending {
		return nil, ErrMFASessionInvalid
	}

	// 2. The server-side session row is what carries the attempt
	// counter; a signed token alone is not enough.
	session, err := s.Store.MFASessions().GetMFASession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMFASessionInvalid
		}
		return nil, s.internalFailure(ctx, claims.Subject, "", ip, err)
	}
	if session.Attempts >= domain.MaxMFAAttempts {
		return nil, s.exhaustMFASession(ctx, session, ip)
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, s.internalFailure(ctx, claims.Subject, session.UserID, ip, err)
	}
	if user.Username != claims.Subject || !user.IsActive || !user.MFAEnabled || user.MFASecret == nil {
		return nil, ErrMFASessionInvalid
	}

	// 3. Dispatch on code shape.
	var (
		ok                   bool
		backupCodeUsed       bool
		backupCodesRemaining int
	)
	switch {
	case isTOTPCode(code):
		ok = VerifyTOTP(*user.MFASecret, code)
	case isBackupCodeShape(code):
		consumed, remaining, cerr := s.MFA.VerifyBackupCode(ctx, user.ID, code)
		if cerr != nil {
			return nil, s.internalFailure(ctx, user.Username, user.ID, ip, cerr)
		}
		ok, backupCodeUsed, backupCodesRemaining = consumed, consumed, remaining
	default:
		// Wrong shape burns an attempt like any other bad code.
	}

	if !ok {
		return nil, s.failMFACode(ctx, session, &user, ip, userAgent)
	}

	// 4. The session is single-use: delete before minting so a replay
	// of the same token+code finds nothing.
	if err := s.Store.MFASessions().DeleteMFASession(ctx, session.ID); err != nil {
		return nil, s.internalFailure(ctx, user.Username, user.ID, ip, err)
	}

	result, err := s.completeLogin(ctx, &user, ip, userAgent)
	if err != nil {
		return nil, s.internalFailure(ctx, user.Username, user.ID, ip, err)
	}
	result.BackupCodeUsed = backupCodeUsed
	result.BackupCodesRemaining = backupCodesRemaining

	if backupCodeUsed {
		s.Monitor.TrackEvent(domain.EventBackupCodeUsed, domain.SeverityWarning,
			user.ID, ip, map[string]string{"remaining": strconv.Itoa(backupCodesRemaining)})
		log.Warn("backup code consumed for login",
			"user_id", user.ID, "remaining", backupCodesRemaining)
	}

	s.auditAttempt(ctx, LoginInput{
		Username: user.Username, IP: ip, UserAgent: userAgent,
	}, user.ID, true, "")
	return result, nil
}

// failMFACode burns one attempt, exhausting the session at the cap.
func (s *AuthService) failMFACode(
	ctx context.Context,
	session domain.MFASession,
	user *domain.User,
	ip, userAgent string,
) error {
	updated, err := s.Store.MFASessions().IncrementMFASessionAttempts(ctx, session.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return s.internalFailure(ctx, user.Username, user.ID, ip, err)
	}

	s.auditAttempt(ctx, LoginInput{
		Username: user.Username, IP: ip, UserAgent: userAgent,
	}, user.ID, false, domain.ReasonMFABadCode)
	s.Monitor.TrackEvent(domain.EventMFAFailed, domain.SeverityWarning, user.ID, ip, nil)

	if updated.Attempts >= domain.MaxMFAAttempts {
		return s.exhaustMFASession(ctx, updated, ip)
	}
	return ErrInvalidMFACode
}

// exhaustMFASession tears down a session whose attempt budget is spent.
// The user must restart from the password step.
func (s *AuthService) exhaustMFASession(
	ctx context.Context,
	session domain.MFASession,
	ip string,
) error {
	if err := s.Store.MFASessions().DeleteMFASession(ctx, session.ID); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Error("delete exhausted MFA session",
			"session_id", session.ID, "err", err)
	}
	s.Monitor.TrackEvent(domain.EventMFALockout, domain.SeverityWarning,
		session.UserID, ip, map[string]string{"attempts": strconv.Itoa(session.Attempts)})
	return ErrTooManyAttempts
}

// isTOTPCode matches exactly six ASCII digits.
func isTOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isBackupCodeShape matches the XXXX-XXXX backup code format.
func isBackupCodeShape(code string) bool {
	code = NormalizeBackupCode(code)
	return len(code) == 9 && strings.Count(code, "-") == 1 && code[4] == '-'
}
