package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/slogx"
)

const (
	// DefaultLockoutThreshold is the failed-attempt count that locks an
	// account.
	DefaultLockoutThreshold = 5
	// DefaultLockoutDuration is how long a locked account stays locked.
	DefaultLockoutDuration = 15 * time.Minute
)

// AccountSecurityService owns the lockout state machine and the
// advisory suspicious-login heuristics.
type AccountSecurityService struct {
	Store store.Store

	// LockoutThreshold and LockoutDuration fall back to the defaults
	// when left zero.
	LockoutThreshold int
	LockoutDuration  time.Duration
}

func (s *AccountSecurityService) threshold() int {
	if s.LockoutThreshold > 0 {
		return s.LockoutThreshold
	}
	return DefaultLockoutThreshold
}

func (s *AccountSecurityService) lockoutDuration() time.Duration {
	if s.LockoutDuration > 0 {
		return s.LockoutDuration
	}
	return DefaultLockoutDuration
}

// IsLocked reports whether the user is currently locked out and, if so,
// how many minutes remain (rounded up, minimum 1).
func (s *AccountSecurityService) IsLocked(u *domain.User) (bool, int) {
	if u.LockedUntil == nil {
		return false, 0
	}
	remaining := time.Until(*u.LockedUntil)
	if remaining <= 0 {
		return false, 0
	}
	return true, int(math.Ceil(remaining.Minutes()))
}

// RecordFailedLogin counts one failed attempt. The increment and the
// threshold check happen in a single atomic statement in the store, so
// a concurrent burst of failures cannot skip past the lock. Returns
// whether this attempt locked the account and the lockout length in
// minutes.
func (s *AccountSecurityService) RecordFailedLogin(
	ctx context.Context,
	u *domain.User,
	ip string,
) (bool, int, error) {
	wasLocked := u.LockedUntil != nil && u.LockedUntil.After(time.Now())

	attempts, lockedUntil, err := s.Store.Users().RecordFailedLogin(
		ctx, u.ID, s.threshold(), s.lockoutDuration())
	if err != nil {
		return false, 0, fmt.Errorf("record failed login: %w", err)
	}

	u.FailedLoginAttempts = attempts
	u.LockedUntil = lockedUntil

	lockedNow := !wasLocked && lockedUntil != nil && lockedUntil.After(time.Now())
	if lockedNow {
		slogx.FromContext(ctx).Warn("account locked",
			"user_id", u.ID,
			"attempts", attempts,
			"ip", ip,
			"locked_until", lockedUntil,
		)
		return true, int(math.Ceil(s.lockoutDuration().Minutes())), nil
	}
	return false, 0, nil
}

// UpdateLoginMetadata resets the failure counter, clears any lock, and
// stamps the last-login fields after a successful authentication.
func (s *AccountSecurityService) UpdateLoginMetadata(
	ctx context.Context,
	u *domain.User,
	ip, userAgent string,
) error {
	if err := s.Store.Users().RecordSuccessfulLogin(ctx, u.ID, ip, userAgent); err != nil {
		return fmt.Errorf("update login metadata: %w", err)
	}
	now := time.Now().UTC()
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.LastLoginUserAgent = userAgent
	return nil
}

// DetectSuspiciousLogin compares the attempt against the user's last
// successful login. Purely advisory: the result feeds the monitor and
// never blocks the login.
func (s *AccountSecurityService) DetectSuspiciousLogin(
	u *domain.User,
	ip, userAgent string,
) (bool, []string) {
	if u.LastLoginAt == nil {
		// First login has no baseline to compare against.
		return false, nil
	}

	var reasons []string
	if u.LastLoginIP != "" && ip != "" && u.LastLoginIP != ip {
		reasons = append(reasons, "new_ip")
	}
	if u.LastLoginUserAgent != "" && userAgent != "" && u.LastLoginUserAgent != userAgent {
		reasons = append(reasons, "new_user_agent")
	}
	return len(reasons) > 0, reasons
}
