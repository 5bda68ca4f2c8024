package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2 encoded
	RoleID       string // Foreign key to roles table
	IsActive     bool

	// Lockout state. LockedUntil in the past (or nil) means unlocked;
	// no explicit unlock write is ever required.
	FailedLoginAttempts int
	LockedUntil         *time.Time

	// Last successful login metadata, fed to the suspicious-login
	// comparison on the next attempt.
	LastLoginAt        *time.Time
	LastLoginIP        string
	LastLoginUserAgent string

	// MFA state. Secret set + MFAEnabled false means enrollment is
	// pending verification.
	MFAEnabled    bool
	MFASecret     *string // TOTP secret (nullable, base32 encoded)
	MFAEnrolledAt *time.Time

	ForcePasswordChange bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFAPending reports whether the user has begun TOTP enrollment but not
// yet confirmed it with a valid code.
func (u *User) MFAPending() bool {
	return u.MFASecret != nil && !u.MFAEnabled
}
